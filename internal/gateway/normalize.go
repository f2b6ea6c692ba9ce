package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	apierrors "dinodial-gateway/internal/errors"
	"dinodial-gateway/internal/models"
)

// Outcome is the local response derived from an upstream response.
type Outcome struct {
	Status   int
	Body     []byte
	Rejected bool
}

// Normalize decodes an upstream body into the typed envelope for T and decides
// the local response.
//
// A 2xx response is re-encoded from the typed envelope and always answered
// with 200. Any other status is mirrored and its body passed through verbatim,
// but only after it has parsed against the same schema. A body that does not
// parse is a BodyParseError whatever the upstream status was.
func Normalize[T any](upstreamStatus int, body []byte) (Outcome, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Outcome{}, apierrors.New(apierrors.KindBodyParse, "upstream body is not a JSON object")
	}

	var env models.Envelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Outcome{}, apierrors.Wrap(apierrors.KindBodyParse, "upstream body does not match schema", err)
	}

	success := upstreamStatus >= http.StatusOK && upstreamStatus < http.StatusMultipleChoices
	if err := env.Validate(success); err != nil {
		return Outcome{}, apierrors.Wrap(apierrors.KindBodyParse, "upstream body does not match schema", err)
	}

	if !success {
		return Outcome{Status: localStatus(upstreamStatus), Body: body, Rejected: true}, nil
	}

	out, err := encode(env)
	if err != nil {
		return Outcome{}, apierrors.Wrap(apierrors.KindBodyParse, "failed to encode response", fmt.Errorf("marshal envelope: %w", err))
	}
	return Outcome{Status: http.StatusOK, Body: out}, nil
}

// encode marshals v without HTML escaping so strings keep the upstream's bytes.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func localStatus(upstream int) int {
	if upstream < 100 || upstream > 599 {
		return http.StatusInternalServerError
	}
	return upstream
}
