package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	apierrors "dinodial-gateway/internal/errors"
)

type DinodialAdapter struct {
	baseURL string
}

func NewDinodialAdapter(baseURL string) *DinodialAdapter {
	return &DinodialAdapter{baseURL: strings.TrimRight(baseURL, "/")}
}

// BuildUpstreamURL substitutes callID into the operation's path verbatim. No
// escaping is applied beyond what url.Parse requires to accept the result.
func (a *DinodialAdapter) BuildUpstreamURL(op Operation, callID string) (string, error) {
	route, ok := Lookup(op)
	if !ok {
		return "", fmt.Errorf("unknown operation: %s", op)
	}

	path := route.PathTemplate
	if route.NeedsCallID() {
		if strings.TrimSpace(callID) == "" {
			return "", fmt.Errorf("%s requires a call id", op)
		}
		path = strings.ReplaceAll(path, callIDPlaceholder, callID)
	}

	raw := a.baseURL + path
	if _, err := url.Parse(raw); err != nil {
		return "", fmt.Errorf("parse upstream url: %w", err)
	}
	return raw, nil
}

func (a *DinodialAdapter) ApplyAuthHeaders(headers http.Header, token string) {
	headers.Set("Authorization", "Bearer "+token)
}

// DescribeUnparseable builds the 502 error body for an upstream response that
// did not match the expected schema, carrying whatever message text the
// upstream body offers.
func (a *DinodialAdapter) DescribeUnparseable(statusCode int, upstreamBody []byte, requestID string) []byte {
	message := extractMessage(upstreamBody)
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return apierrors.Marshal(
		apierrors.KindBodyParse,
		fmt.Sprintf("upstream returned %d with an unexpected body: %s", statusCode, message),
		requestID,
	)
}

func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var generic map[string]any
	if err := json.Unmarshal(body, &generic); err != nil {
		return truncate(trimmed)
	}

	for _, key := range []string{"message", "detail", "error"} {
		if msg, ok := generic[key].(string); ok && strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg)
		}
	}

	if errObj, ok := generic["error"].(map[string]any); ok {
		if msg, ok := errObj["message"].(string); ok && strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg)
		}
	}

	return truncate(trimmed)
}

const maxMessageLen = 512

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	return s[:maxMessageLen] + "..."
}
