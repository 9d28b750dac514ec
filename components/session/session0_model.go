package session

import (
	"errors"

	"chatey/components/user"
)

var (
	ErrNotSignedIn       = errors.New("not signed in")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrInvalidAssertion  = errors.New("invalid identity assertion")
)

// ResponseMe is the signed-in identity as the screens see it.
type ResponseMe struct {
	User       *user.DBUser `json:"user"`
	Registered bool         `json:"registered"`
}

type ResponseSignIn struct {
	Token      string       `json:"token"`
	User       *user.DBUser `json:"user"`
	Registered bool         `json:"registered"`
}

type ResponseLastError struct {
	Error string `json:"error,omitempty"`
}
