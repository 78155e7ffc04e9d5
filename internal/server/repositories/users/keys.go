package users

import (
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

const (
	keyIDByEmail   = "user:idByEmail"
	keyRoleByID    = "user:roleById"
	keyIDByToken   = "user:idByToken"
	keyArchivedSet = "user:archived"
)

func recordKey(role models.Role, id string) string {
	return fmt.Sprintf("user:%s:%s", role, id)
}

func roleScanPattern(role models.Role) string {
	return fmt.Sprintf("user:%s:*", role)
}

func archivedKey(email string) string {
	return "user:archived:" + email
}

const (
	fieldID             = "id"
	fieldEmail          = "email"
	fieldFirstname      = "firstname"
	fieldLastname       = "lastname"
	fieldRole           = "role"
	fieldSalt           = "salt"
	fieldHashedPassword = "hashedPassword"
	fieldURLToken       = "urlToken"
	fieldCreatedOn      = "createdOn"
	fieldUpdatedOn      = "updatedOn"
	fieldArchivedOn     = "archivedOn"
)

func toFields(u *models.User) map[string]string {
	f := map[string]string{
		fieldID:             u.ID,
		fieldEmail:          u.Email,
		fieldFirstname:      u.Firstname,
		fieldLastname:       u.Lastname,
		fieldRole:           string(u.Role),
		fieldSalt:           u.Salt,
		fieldHashedPassword: u.HashedPassword,
		fieldURLToken:       u.URLToken,
		fieldCreatedOn:      strconv.FormatInt(u.CreatedOn, 10),
	}
	if u.UpdatedOn != 0 {
		f[fieldUpdatedOn] = strconv.FormatInt(u.UpdatedOn, 10)
	}
	return f
}

func fromFields(f map[string]string) (*models.User, error) {
	u := &models.User{
		ID:             f[fieldID],
		Email:          f[fieldEmail],
		Firstname:      f[fieldFirstname],
		Lastname:       f[fieldLastname],
		Role:           models.Role(f[fieldRole]),
		Salt:           f[fieldSalt],
		HashedPassword: f[fieldHashedPassword],
		URLToken:       f[fieldURLToken],
	}

	var err error
	if u.CreatedOn, err = parseMillis(f[fieldCreatedOn]); err != nil {
		return nil, fmt.Errorf("bad %s: %w", fieldCreatedOn, err)
	}
	if u.UpdatedOn, err = parseMillis(f[fieldUpdatedOn]); err != nil {
		return nil, fmt.Errorf("bad %s: %w", fieldUpdatedOn, err)
	}
	return u, nil
}

func parseMillis(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
