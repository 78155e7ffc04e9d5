package users

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// AuthMethod selects which identifier Authenticate resolves.
type AuthMethod string

const (
	EmailAuth      AuthMethod = "emailAuth"
	StreamLineAuth AuthMethod = "streamLineAuth"
)

// TokenDecoder turns an access token into the id of its subject.
type TokenDecoder interface {
	SubjectFromToken(ctx context.Context, accessToken string) (string, error)
}

// Archiver receives a copy of every archived user.
type Archiver interface {
	Export(ctx context.Context, user *models.User, archivedAt time.Time) error
}

// EventRecorder stores fire-and-forget audit events.
type EventRecorder interface {
	Record(ctx context.Context, eventType, message string)
}

// NewUser carries the caller-supplied fields of a user being created.
type NewUser struct {
	Email     string
	Firstname string
	Lastname  string
	Role      string
}

// UpdateUser names the user by ID; nil fields are left unchanged.
type UpdateUser struct {
	ID        string
	Email     *string
	Firstname *string
	Lastname  *string
	Role      *string
	Password  *string
}

// Lookup identifies a user by exactly one of its fields.
type Lookup struct {
	ID          string
	Email       string
	Token       string
	AccessToken string
}

func (l Lookup) count() int {
	n := 0
	for _, v := range []string{l.ID, l.Email, l.Token, l.AccessToken} {
		if v != "" {
			n++
		}
	}
	return n
}

type AuthResult struct {
	User       *models.User
	Authorized bool
}

type AddResult struct {
	UserAdded bool   `json:"userAdded"`
	ID        string `json:"id"`
}

type UpdateResult struct {
	UserUpdated bool   `json:"userUpdated"`
	ID          string `json:"id"`
}

type DeleteResult struct {
	UserDeleted bool   `json:"userDeleted"`
	ID          string `json:"id"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
