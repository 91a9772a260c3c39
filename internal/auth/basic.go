package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
)

// BasicAuthEngine authenticates requests with HTTP Basic credentials checked
// against a single configured username/password pair. It stands in for
// system-level credential checkers (PAM and friends) behind the same
// AuthEngine boundary.
type BasicAuthEngine struct {
	Username string
	Password string
}

// NewBasicAuthEngine creates a new BasicAuthEngine with the given
// credentials.
func NewBasicAuthEngine(username string, password string) *BasicAuthEngine {
	return &BasicAuthEngine{
		Username: username,
		Password: password,
	}
}

// AuthenticateRequest checks the Authorization header for valid Basic Auth
// credentials. It returns true if the credentials are valid, false otherwise.
func (e *BasicAuthEngine) AuthenticateRequest(_ context.Context, r *http.Request) (bool, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return false, nil
	}

	// Constant-time comparison of both fields regardless of which mismatches.
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(e.Username))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(e.Password))

	return userOK&passOK == 1, nil
}
