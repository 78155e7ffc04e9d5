// Package models defines server-side data models persisted in the key-value store.
package models

// User is a live account. Timestamps are epoch milliseconds.
type User struct {
	ID             string
	Email          string
	Firstname      string
	Lastname       string
	Role           Role
	Salt           string
	HashedPassword string
	URLToken       string
	CreatedOn      int64
	UpdatedOn      int64
}

// PublicUser is the projection of User without credentials or the url-token.
type PublicUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Role      Role   `json:"role"`
	CreatedOn int64  `json:"createdOn"`
	UpdatedOn int64  `json:"updatedOn,omitempty"`
}

// Public strips the sensitive fields.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Role:      u.Role,
		CreatedOn: u.CreatedOn,
		UpdatedOn: u.UpdatedOn,
	}
}
