// Package common defines shared constants and sentinel errors used across
// the accountkeeper server. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"net/http"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("conflicting concurrent write")
)

// Error is a domain error tagged with the HTTP status it is surfaced with.
type Error struct {
	Name    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(name string, status int, message string) *Error {
	return &Error{Name: name, Status: status, Message: message}
}

var (
	ErrMissingRequiredParameter = newError("MissingRequiredParameter", http.StatusBadRequest, "missing required parameter")
	ErrInvalidRole              = newError("InvalidRole", http.StatusBadRequest, "role is not recognized")

	ErrBadCredentials          = newError("BadCredentials", http.StatusUnauthorized, "bad credentials")
	ErrAuthMethodNotRecognized = newError("AuthMethodNotRecognized", http.StatusUnauthorized, "authentication method not recognized")
	ErrInvalidToken            = newError("InvalidToken", http.StatusUnauthorized, "invalid token")
	ErrExpiredToken            = newError("ExpiredToken", http.StatusUnauthorized, "token expired")
	ErrMissingAccessToken      = newError("MissingAccessToken", http.StatusUnauthorized, "missing access token")
	ErrMissingRefreshToken     = newError("MissingRefreshToken", http.StatusUnauthorized, "missing refresh token")
	ErrMissingPasswordToken    = newError("MissingPasswordToken", http.StatusUnauthorized, "missing password token")

	ErrUserNotAuthorized = newError("UserNotAuthorized", http.StatusForbidden, "user not authorized")
	ErrUserDoesNotExist  = newError("UserDoesNotExist", http.StatusNotFound, "user does not exist")

	ErrUserAlreadyExists     = newError("UserAlreadyExists", http.StatusInternalServerError, "user already exists")
	ErrUserCannotBeDeleted   = newError("UserCannotBeDeleted", http.StatusInternalServerError, "user cannot be deleted")
	ErrUnableToGetUsers      = newError("UnableToGetUsers", http.StatusInternalServerError, "unable to get users")
	ErrUnableToAddUser       = newError("UnableToAddUser", http.StatusInternalServerError, "unable to add user")
	ErrUnableToUpdateUser    = newError("UnableToUpdateUser", http.StatusInternalServerError, "unable to update user")
	ErrUnableToResetPassword = newError("UnableToResetPassword", http.StatusInternalServerError, "unable to reset password")
)

// AsError extracts the domain error from err's chain. Errors without a domain
// tag are reported as nil, false.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusOf returns the HTTP status for err. Untagged errors map to 500.
func StatusOf(err error) int {
	if e, ok := AsError(err); ok {
		return e.Status
	}
	return http.StatusInternalServerError
}
