package adapter

import (
	"net/http"
	"strings"
)

type Operation string

const (
	OpMakeCall     Operation = "make_call"
	OpListCalls    Operation = "list_calls"
	OpCallDetail   Operation = "call_detail"
	OpRecordingURL Operation = "recording_url"
)

const callIDPlaceholder = "{id}"

// Route is the fixed upstream endpoint of an operation.
type Route struct {
	Method       string
	PathTemplate string
}

// NeedsCallID reports whether the path template carries a call id segment.
func (r Route) NeedsCallID() bool {
	return strings.Contains(r.PathTemplate, callIDPlaceholder)
}

var registry = map[Operation]Route{
	OpMakeCall:     {Method: http.MethodPost, PathTemplate: "/api/proxy/make-call/"},
	OpListCalls:    {Method: http.MethodGet, PathTemplate: "/api/proxy/calls/list/"},
	OpCallDetail:   {Method: http.MethodGet, PathTemplate: "/api/proxy/call/detail/" + callIDPlaceholder + "/"},
	OpRecordingURL: {Method: http.MethodGet, PathTemplate: "/api/proxy/recording-url/" + callIDPlaceholder + "/"},
}

func Lookup(op Operation) (Route, bool) {
	r, ok := registry[op]
	return r, ok
}

func Operations() []Operation {
	return []Operation{OpMakeCall, OpListCalls, OpCallDetail, OpRecordingURL}
}
