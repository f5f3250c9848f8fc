package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anshumantekriwal/kadena-agents/internal/deployer/auth"
)

func headers(values map[string]string) func(string) string {
	return func(name string) string { return values[name] }
}

func TestAPIKeyProvider(t *testing.T) {
	p := auth.NewAPIKeyProvider("x-api-key", "secret")

	session, err := p.Authenticate(context.Background(), headers(map[string]string{"x-api-key": "secret"}))
	require.NoError(t, err)
	assert.Equal(t, "api-key", session.Principal().Name)

	_, err = p.Authenticate(context.Background(), headers(nil))
	assert.ErrorIs(t, err, auth.ErrMissingKey)

	_, err = p.Authenticate(context.Background(), headers(map[string]string{"x-api-key": "secreT"}))
	assert.ErrorIs(t, err, auth.ErrInvalidKey)
}

func TestAPIKeyProvider_EmptyKeyRejectsEverything(t *testing.T) {
	p := auth.NewAPIKeyProvider("x-api-key", "")
	_, err := p.Authenticate(context.Background(), headers(map[string]string{"x-api-key": "anything"}))
	assert.ErrorIs(t, err, auth.ErrInvalidKey)
}

type pingOutput struct {
	Body struct {
		Caller string `json:"caller"`
	}
}

func TestAuthnMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Test API", "1.0.0"))
	api.UseMiddleware(auth.AuthnMiddleware(auth.NewAPIKeyProvider("x-api-key", "secret"), "/health"))

	handled := 0
	handler := func(ctx context.Context, _ *struct{}) (*pingOutput, error) {
		handled++
		out := &pingOutput{}
		if s, ok := auth.AuthSessionFrom(ctx); ok {
			out.Body.Caller = s.Principal().Name
		}
		return out, nil
	}
	huma.Register(api, huma.Operation{OperationID: "private", Method: http.MethodGet, Path: "/agents"}, handler)
	huma.Register(api, huma.Operation{OperationID: "public", Method: http.MethodGet, Path: "/health"}, handler)

	tests := []struct {
		name       string
		path       string
		key        string
		wantStatus int
	}{
		{"missing key", "/agents", "", http.StatusUnauthorized},
		{"wrong key", "/agents", "nope", http.StatusUnauthorized},
		{"valid key", "/agents", "secret", http.StatusOK},
		{"public path", "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := handled
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("x-api-key", tt.key)
			}
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, before, handled, "handler must not run")
				assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	req.Header.Set("x-api-key", "secret")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"caller":"api-key"`)
}
