package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinodial-gateway/internal/config"
	apierrors "dinodial-gateway/internal/errors"
)

func TestParseBearer(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"Bearer a b", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := ParseBearer(tt.header)
		assert.Equal(t, tt.ok, ok, "header %q", tt.header)
		assert.Equal(t, tt.token, token, "header %q", tt.header)
	}
}

func TestHeaderSource(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/list/", nil)
	req.Header.Set("Authorization", "Bearer caller-token")

	token, err := HeaderSource{}.Token(req)
	require.NoError(t, err)
	assert.Equal(t, "caller-token", token)

	req.Header.Set("Authorization", "caller-token")
	_, err = HeaderSource{}.Token(req)
	require.Error(t, err)
	assert.Equal(t, apierrors.KindUnauthorized, apierrors.KindOf(err))
}

func TestEnvSource(t *testing.T) {
	env := map[string]string{"ADMIN_TOKEN": " admin "}
	src := &EnvSource{key: "ADMIN_TOKEN", lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	token, err := src.Token(nil)
	require.NoError(t, err)
	assert.Equal(t, "admin", token)

	delete(env, "ADMIN_TOKEN")
	_, err = src.Token(nil)
	require.Error(t, err)
	assert.Equal(t, apierrors.KindConfiguration, apierrors.KindOf(err))

	env["ADMIN_TOKEN"] = "   "
	_, err = src.Token(nil)
	assert.Equal(t, apierrors.KindConfiguration, apierrors.KindOf(err))
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, HeaderSource{}, NewFromConfig(cfg))

	cfg.Auth.TokenSource = config.TokenSourceConfig
	src, ok := NewFromConfig(cfg).(*EnvSource)
	require.True(t, ok)
	assert.Equal(t, "ADMIN_TOKEN", src.key)
}
