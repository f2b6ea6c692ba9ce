// Package models holds the dinodial wire schemas. Every upstream response shares
// the {data, status, status_code, action_code} envelope; only data varies per
// operation.
package models

import (
	"encoding/json"
	"errors"
)

// ErrMissingData is returned by Validate for a success envelope without data.
var ErrMissingData = errors.New("response envelope has no data")

type Envelope[T any] struct {
	Data       *T     `json:"data"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	ActionCode string `json:"action_code"`
}

// Validate checks the parts of the envelope json.Unmarshal cannot enforce.
// Error envelopes may omit data; success envelopes may not.
func (e *Envelope[T]) Validate(success bool) error {
	if success && e.Data == nil {
		return ErrMissingData
	}
	return nil
}

type MakeCallRequest struct {
	Prompt         string          `json:"prompt"`
	EvaluationTool json.RawMessage `json:"evaluation_tool"`
	VADEngine      any             `json:"vad_engine,omitempty"`
}

type (
	MakeCallResponse     = Envelope[CallData]
	ListCallsResponse    = Envelope[ListCallsData]
	CallDetailResponse   = Envelope[CallDetailData]
	RecordingURLResponse = Envelope[RecordingURLData]
)

type CallData struct {
	ID      uint64 `json:"id"`
	Message string `json:"message"`
}

type ListCallsData struct {
	Count    uint32     `json:"count"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Results  []CallItem `json:"results"`
}

type CallItem struct {
	ID          uint64 `json:"id"`
	CallID      string `json:"call_id"`
	Created     string `json:"created"`
	PhoneNumber string `json:"phone_number"`
	Status      string `json:"status"`
}

type CallDetailData struct {
	ID             uint64          `json:"id"`
	CallID         string          `json:"call_id"`
	Created        string          `json:"created"`
	PhoneNumber    string          `json:"phone_number"`
	Status         string          `json:"status"`
	Prompt         string          `json:"prompt"`
	EvaluationTool json.RawMessage `json:"evaluation_tool"`
	ExotelID       string          `json:"exotel_id"`
	CallDetails    CallDetails     `json:"call_details"`
}

// CallDetails uses the upstream's camelCase keys. The optional fields are
// frequently absent or null depending on how far the call progressed; either
// way they are written back as null.
type CallDetails struct {
	CallID            string            `json:"callId"`
	Events            []Event           `json:"events"`
	LLMNotes          []json.RawMessage `json:"llmNotes"`
	ToolCalls         []ToolCall        `json:"toolCalls"`
	PhaseHistory      []PhaseHistory    `json:"phaseHistory"`
	UsageMetadata     *UsageMetadata    `json:"usageMetadata"`
	CallSummaryData   json.RawMessage   `json:"callSummaryData"`
	CallOutcomesData  json.RawMessage   `json:"callOutcomesData"`
	TerminationReason *string           `json:"terminationReason"`
	TerminationSource *string           `json:"terminationSource"`
	TranscriptionData TranscriptionData `json:"transcriptionData"`
}

type Event struct {
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
	Timestamp int64           `json:"timestamp"`
}

type ToolCall struct {
	ToolName  string `json:"toolName"`
	Timestamp int64  `json:"timestamp"`
}

type PhaseHistory struct {
	To        string          `json:"to"`
	From      string          `json:"from"`
	Metadata  json.RawMessage `json:"metadata"`
	Timestamp int64           `json:"timestamp"`
}

type UsageMetadata struct {
	TotalTokenCount     uint32        `json:"totalTokenCount"`
	PromptTokenCount    uint32        `json:"promptTokenCount"`
	PromptTokensDetails []TokenDetail `json:"promptTokensDetails"`
}

type TokenDetail struct {
	Modality   string `json:"modality"`
	TokenCount uint32 `json:"tokenCount"`
}

type TranscriptionData struct {
	Transcripts                  []json.RawMessage `json:"transcripts"`
	InterruptionTimestamps       []int64           `json:"interruptionTimestamps"`
	TurnCompleteTimestamps       []int64           `json:"turnCompleteTimestamps"`
	GenerationCompleteTimestamps []int64           `json:"generationCompleteTimestamps"`
}

type RecordingURLData struct {
	RecordingURL *string `json:"recording_url"`
}
