package auth

import (
	"context"
	"net/http"
)

// AuthEngine is the authentication predicate the server consults once per
// request, before any routing happens.
type AuthEngine interface {

	// AuthenticateRequest inspects the given HTTP request for valid
	// authentication credentials. If valid, it returns true; otherwise, it
	// returns false. An error is returned if there was an issue processing
	// the authentication.
	AuthenticateRequest(ctx context.Context, r *http.Request) (bool, error)
}
