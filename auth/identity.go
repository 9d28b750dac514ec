package auth

import "context"

// Assertion is what the external identity provider vouches for after a
// successful sign-in. UID is stable across sign-ins.
type Assertion struct {
	UID     string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}

type I_IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Assertion, error)
}
