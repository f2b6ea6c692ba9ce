package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinodial-gateway/internal/models"
)

const minimalDetail = `{
  "data": {
    "id": 7,
    "call_id": "c-7",
    "created": "2025-01-01T00:00:00Z",
    "phone_number": "+910000000000",
    "status": "completed",
    "prompt": "hello",
    "evaluation_tool": {"name": "score"},
    "exotel_id": "ex-1",
    "call_details": {
      "callId": "c-7",
      "events": [{"data": {"k": 1}, "event": "start", "timestamp": 1}],
      "llmNotes": [],
      "toolCalls": [{"toolName": "hangup", "timestamp": 2}],
      "phaseHistory": [{"to": "b", "from": "a", "metadata": null, "timestamp": 3}],
      "transcriptionData": {
        "transcripts": [],
        "interruptionTimestamps": [],
        "turnCompleteTimestamps": [4],
        "generationCompleteTimestamps": []
      }
    }
  },
  "status": "success",
  "status_code": 200,
  "action_code": "CALL_DETAIL"
}`

func TestCallDetailToleratesMissingOptionalFields(t *testing.T) {
	var resp models.CallDetailResponse
	require.NoError(t, json.Unmarshal([]byte(minimalDetail), &resp))
	require.NoError(t, resp.Validate(true))

	details := resp.Data.CallDetails
	assert.Nil(t, details.UsageMetadata)
	assert.Nil(t, details.TerminationReason)
	assert.Nil(t, details.TerminationSource)
	assert.Empty(t, details.CallSummaryData)
	assert.Equal(t, "hangup", details.ToolCalls[0].ToolName)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"usageMetadata":null`)
	assert.Contains(t, string(out), `"callSummaryData":null`)
	assert.Contains(t, string(out), `"terminationReason":null`)
}

func TestCallDetailKeepsOptionalFieldsWhenPresent(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(minimalDetail), &raw))
	details := raw["data"].(map[string]any)["call_details"].(map[string]any)
	details["usageMetadata"] = map[string]any{
		"totalTokenCount":     10,
		"promptTokenCount":    4,
		"promptTokensDetails": []any{map[string]any{"modality": "AUDIO", "tokenCount": 4}},
	}
	details["callSummaryData"] = map[string]any{"summary": "ok"}
	details["terminationReason"] = "completed"
	details["terminationSource"] = "agent"
	body, err := json.Marshal(raw)
	require.NoError(t, err)

	var resp models.CallDetailResponse
	require.NoError(t, json.Unmarshal(body, &resp))

	got := resp.Data.CallDetails
	require.NotNil(t, got.UsageMetadata)
	assert.Equal(t, uint32(10), got.UsageMetadata.TotalTokenCount)
	assert.Equal(t, "AUDIO", got.UsageMetadata.PromptTokensDetails[0].Modality)
	assert.JSONEq(t, `{"summary":"ok"}`, string(got.CallSummaryData))
	assert.Equal(t, "completed", *got.TerminationReason)
	assert.Equal(t, "agent", *got.TerminationSource)
}

func TestEnvelopeValidate(t *testing.T) {
	var resp models.RecordingURLResponse
	require.NoError(t, json.Unmarshal([]byte(`{"status":"error","status_code":404,"action_code":"NOT_FOUND"}`), &resp))

	assert.NoError(t, resp.Validate(false))
	assert.ErrorIs(t, resp.Validate(true), models.ErrMissingData)
}

func TestRecordingURLIsOptional(t *testing.T) {
	var resp models.RecordingURLResponse
	require.NoError(t, json.Unmarshal([]byte(`{"data":{},"status":"success","status_code":200,"action_code":"OK"}`), &resp))
	require.NotNil(t, resp.Data)
	assert.Nil(t, resp.Data.RecordingURL)
}

func TestMakeCallRequestOmitsEmptyVADEngine(t *testing.T) {
	out, err := json.Marshal(models.MakeCallRequest{Prompt: "hi", EvaluationTool: json.RawMessage(`{}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"prompt":"hi","evaluation_tool":{}}`, string(out))
}
