package auth_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"lfsd/internal/auth"

	"github.com/stretchr/testify/require"
)

const (
	Username = "lfsadmin"
	Password = "lfssecret"
)

func basicHeader(user string, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestBasicAuth_Succeeds(t *testing.T) {
	t.Parallel()

	e := auth.NewBasicAuthEngine(Username, Password)

	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "http://example.com/objects/batch", nil)
	req.Header.Set("Authorization", basicHeader(Username, Password))

	ok, err := e.AuthenticateRequest(t.Context(), req)
	require.NoError(t, err, "expected basic authentication to not error")
	require.True(t, ok, "expected valid credentials to authenticate")
}

func TestBasicAuth_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "wrong scheme", header: "Bearer abcdef"},
		{name: "bad base64", header: "Basic %%%%"},
		{name: "no separator", header: "Basic " + base64.StdEncoding.EncodeToString([]byte("lfsadmin"))},
		{name: "wrong username", header: basicHeader("other", Password)},
		{name: "wrong password", header: basicHeader(Username, "nope")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := auth.NewBasicAuthEngine(Username, Password)

			req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "http://example.com/objects/batch", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			ok, err := e.AuthenticateRequest(t.Context(), req)
			require.NoError(t, err, "expected basic authentication to not error")
			require.False(t, ok, "expected credentials to be rejected")
		})
	}
}

func TestNoneAuth_AlwaysSucceeds(t *testing.T) {
	t.Parallel()

	e := auth.NewNoneAuthEngine()

	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "http://example.com/objects", nil)

	ok, err := e.AuthenticateRequest(t.Context(), req)
	require.NoError(t, err, "expected no-auth engine to not error")
	require.True(t, ok, "expected no-auth engine to accept every request")
}
