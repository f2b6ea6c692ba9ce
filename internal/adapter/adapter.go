package adapter

import (
	"net/http"
)

type Adapter interface {
	BuildUpstreamURL(op Operation, callID string) (string, error)
	ApplyAuthHeaders(headers http.Header, token string)
	DescribeUnparseable(statusCode int, upstreamBody []byte, requestID string) []byte
}
