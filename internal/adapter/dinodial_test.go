package adapter_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinodial-gateway/internal/adapter"
)

func TestRegistryRoutes(t *testing.T) {
	tests := []struct {
		op     adapter.Operation
		method string
		path   string
		callID bool
	}{
		{adapter.OpMakeCall, http.MethodPost, "/api/proxy/make-call/", false},
		{adapter.OpListCalls, http.MethodGet, "/api/proxy/calls/list/", false},
		{adapter.OpCallDetail, http.MethodGet, "/api/proxy/call/detail/{id}/", true},
		{adapter.OpRecordingURL, http.MethodGet, "/api/proxy/recording-url/{id}/", true},
	}
	for _, tt := range tests {
		route, ok := adapter.Lookup(tt.op)
		require.True(t, ok, "operation %s", tt.op)
		assert.Equal(t, tt.method, route.Method)
		assert.Equal(t, tt.path, route.PathTemplate)
		assert.Equal(t, tt.callID, route.NeedsCallID())
	}
	assert.Len(t, adapter.Operations(), 4)
}

func TestBuildUpstreamURL(t *testing.T) {
	ad := adapter.NewDinodialAdapter("https://proxy.example.com/")

	got, err := ad.BuildUpstreamURL(adapter.OpCallDetail, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.example.com/api/proxy/call/detail/abc-123/", got)

	got, err = ad.BuildUpstreamURL(adapter.OpListCalls, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.example.com/api/proxy/calls/list/", got)

	_, err = ad.BuildUpstreamURL(adapter.OpRecordingURL, "  ")
	require.Error(t, err)

	_, err = ad.BuildUpstreamURL(adapter.Operation("hangup"), "")
	require.Error(t, err)
}

func TestApplyAuthHeadersReplacesInbound(t *testing.T) {
	ad := adapter.NewDinodialAdapter("https://proxy.example.com")
	h := http.Header{}
	h.Set("Authorization", "Basic Zm9vOmJhcg==")

	ad.ApplyAuthHeaders(h, "admin-token")
	assert.Equal(t, []string{"Bearer admin-token"}, h.Values("Authorization"))
}

func TestDescribeUnparseable(t *testing.T) {
	ad := adapter.NewDinodialAdapter("https://proxy.example.com")

	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"plain text", http.StatusServiceUnavailable, "backend broken", "backend broken"},
		{"detail key", http.StatusForbidden, `{"detail":"token expired"}`, "token expired"},
		{"nested error", http.StatusBadRequest, `{"error":{"message":"bad id"}}`, "bad id"},
		{"empty body", http.StatusInternalServerError, "", "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ad.DescribeUnparseable(tt.status, []byte(tt.body), "req-9")

			var payload map[string]any
			require.NoError(t, json.Unmarshal(out, &payload))
			errObj := payload["error"].(map[string]any)
			assert.Equal(t, "body_parse_error", errObj["type"])
			assert.Contains(t, errObj["message"], tt.want)
			assert.Equal(t, "req-9", payload["request_id"])
		})
	}
}
