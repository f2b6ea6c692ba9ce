// Package auth resolves the bearer token forwarded to the upstream. Exactly one
// source is active per deployment: the caller's own Authorization header, or a
// server-side token read from the environment.
package auth

import (
	"net/http"
	"os"
	"strings"

	"dinodial-gateway/internal/config"
	apierrors "dinodial-gateway/internal/errors"
)

const bearerScheme = "Bearer"

type TokenSource interface {
	Token(r *http.Request) (string, error)
}

func NewFromConfig(cfg *config.Config) TokenSource {
	if cfg.Auth.TokenSource == config.TokenSourceConfig {
		return NewEnvSource(cfg.Auth.AdminTokenEnv)
	}
	return HeaderSource{}
}

type HeaderSource struct{}

func (HeaderSource) Token(r *http.Request) (string, error) {
	token, ok := ParseBearer(r.Header.Get("Authorization"))
	if !ok {
		return "", apierrors.New(apierrors.KindUnauthorized, "missing or malformed bearer token")
	}
	return token, nil
}

// EnvSource reads the token on every call so a missing variable surfaces per
// request instead of at startup.
type EnvSource struct {
	key    string
	lookup func(string) (string, bool)
}

func NewEnvSource(key string) *EnvSource {
	return &EnvSource{key: key, lookup: os.LookupEnv}
}

func (s *EnvSource) Token(*http.Request) (string, error) {
	v, ok := s.lookup(s.key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", apierrors.New(apierrors.KindConfiguration, s.key+" is not configured")
	}
	return strings.TrimSpace(v), nil
}

// ParseBearer extracts the credential from an Authorization header value. The
// scheme is matched case-insensitively.
func ParseBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
