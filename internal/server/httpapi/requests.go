package httpapi

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/users"
)

type validatable interface {
	Validate() error
}

func roleValues() []interface{} {
	out := make([]interface{}, 0, len(models.Roles))
	for _, r := range models.Roles {
		out = append(out, string(r))
	}
	return out
}

type signInRequest struct {
	AuthMethod string `json:"authMethod"`
	Email      string `json:"email"`
	Token      string `json:"token"`
	Password   string `json:"password"`
}

// Validate requires the identifier matching the chosen method; an unknown
// method is left for the directory to reject.
func (r signInRequest) Validate() error {
	var emailRules, tokenRules []validation.Rule
	switch users.AuthMethod(r.AuthMethod) {
	case users.EmailAuth:
		emailRules = append(emailRules, validation.Required)
	case users.StreamLineAuth:
		tokenRules = append(tokenRules, validation.Required)
	}

	return validation.ValidateStruct(&r,
		validation.Field(&r.AuthMethod, validation.Required),
		validation.Field(&r.Email, emailRules...),
		validation.Field(&r.Token, tokenRules...),
		validation.Field(&r.Password, validation.Required),
	)
}

func (r signInRequest) identifier() string {
	if r.AuthMethod == string(users.StreamLineAuth) {
		return r.Token
	}
	return r.Email
}

type createUserRequest struct {
	Email               string `json:"email"`
	Firstname           string `json:"firstname"`
	Lastname            string `json:"lastname"`
	Role                string `json:"role"`
	Password            string `json:"password"`
	SendPasswordByEmail bool   `json:"sendPasswordByEmail"`
}

func (r createUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Firstname, validation.Length(0, 200)),
		validation.Field(&r.Lastname, validation.Length(0, 200)),
		validation.Field(&r.Role, validation.Required, validation.In(roleValues()...)),
		validation.Field(&r.Password, validation.Length(0, 200)),
	)
}

type updateUserRequest struct {
	Email     *string `json:"email"`
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Role      *string `json:"role"`
	Password  *string `json:"password"`
}

func (r updateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&r.Firstname, validation.Length(0, 200)),
		validation.Field(&r.Lastname, validation.Length(0, 200)),
		validation.Field(&r.Role, validation.NilOrNotEmpty, validation.In(roleValues()...)),
		validation.Field(&r.Password, validation.NilOrNotEmpty, validation.Length(1, 200)),
	)
}

func (r updateUserRequest) touchesProtectedFields() bool {
	return r.Email != nil || r.Role != nil
}

type askResetPasswordRequest struct {
	Email string `json:"email"`
}

func (r askResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
	)
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r resetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(1, 200)),
	)
}
