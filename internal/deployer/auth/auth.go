// Package auth authenticates API callers with a shared static key.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

var (
	// ErrMissingKey is returned when the request carries no key header.
	ErrMissingKey = errors.New("missing api key")
	// ErrInvalidKey is returned when the supplied key does not match.
	ErrInvalidKey = errors.New("invalid api key")
)

// Principal identifies an authenticated caller.
type Principal struct {
	Name string
}

type Session interface {
	Principal() Principal
}

// AuthnProvider authenticates a request from its headers.
type AuthnProvider interface {
	Authenticate(ctx context.Context, reqHeaders func(name string) string) (Session, error)
}

type keySession struct{}

func (keySession) Principal() Principal { return Principal{Name: "api-key"} }

// APIKeyProvider accepts requests whose header matches one shared key.
type APIKeyProvider struct {
	header string
	key    []byte
}

// NewAPIKeyProvider returns a provider checking header against key.
func NewAPIKeyProvider(header, key string) *APIKeyProvider {
	return &APIKeyProvider{header: header, key: []byte(key)}
}

// Authenticate compares the presented key in constant time.
func (p *APIKeyProvider) Authenticate(_ context.Context, reqHeaders func(name string) string) (Session, error) {
	presented := reqHeaders(p.header)
	if presented == "" {
		return nil, ErrMissingKey
	}
	if len(p.key) == 0 || subtle.ConstantTimeCompare([]byte(presented), p.key) != 1 {
		return nil, ErrInvalidKey
	}
	return keySession{}, nil
}

// context utils

type sessionKeyType struct{}

var sessionKey = sessionKeyType{}

func AuthSessionFrom(ctx context.Context) (Session, bool) {
	v, ok := ctx.Value(sessionKey).(Session)
	return v, ok && v != nil
}

func AuthSessionTo(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// AuthnMiddleware rejects unauthenticated requests with 401 before any
// handler runs. Paths in public bypass authentication.
func AuthnMiddleware(authn AuthnProvider, public ...string) func(ctx huma.Context, next func(huma.Context)) {
	skip := make(map[string]bool, len(public))
	for _, p := range public {
		skip[p] = true
	}
	return func(ctx huma.Context, next func(huma.Context)) {
		if authn == nil || isPublic(skip, ctx.URL().Path) {
			next(ctx)
			return
		}
		session, err := authn.Authenticate(ctx.Context(), ctx.Header)
		if err != nil {
			ctx.SetHeader("Content-Type", "application/json")
			ctx.SetStatus(http.StatusUnauthorized)
			_, _ = ctx.BodyWriter().Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		next(huma.WithContext(ctx, AuthSessionTo(ctx.Context(), session)))
	}
}

func isPublic(skip map[string]bool, path string) bool {
	if skip[path] {
		return true
	}
	for p := range skip {
		if strings.HasSuffix(p, "/") && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
