package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const makeCallSchema = `{
  "type": "object",
  "required": ["prompt", "evaluation_tool"],
  "properties": {
    "prompt": {"type": "string"},
    "evaluation_tool": {},
    "vad_engine": {"type": ["string", "object", "null"]}
  }
}`

var makeCallLoader = gojsonschema.NewStringLoader(makeCallSchema)

// ValidateMakeCall checks a raw MakeCall body. The body is not modified; it is
// forwarded upstream byte for byte once it passes.
func ValidateMakeCall(body []byte) error {
	result, err := gojsonschema.Validate(makeCallLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return &SchemaError{Violations: errs}
	}
	return nil
}

type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "request does not match schema: " + strings.Join(e.Violations, "; ")
}
