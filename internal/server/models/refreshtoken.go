package models

import "time"

// RefreshToken is the server-side state of an issued refresh token.
type RefreshToken struct {
	Token   string
	UserID  string
	Expires time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.Expires)
}
