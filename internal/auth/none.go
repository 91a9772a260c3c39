package auth

import (
	"context"
	"net/http"
)

// NoneAuthEngine accepts every request. It is the default policy for
// deployments that terminate authentication elsewhere.
type NoneAuthEngine struct{}

// NewNoneAuthEngine creates a new NoneAuthEngine.
func NewNoneAuthEngine() *NoneAuthEngine {
	return &NoneAuthEngine{}
}

func (e *NoneAuthEngine) AuthenticateRequest(_ context.Context, _ *http.Request) (bool, error) {
	return true, nil
}
