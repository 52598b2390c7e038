package amqp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const takingsImportedSchema = `{
  "type": "object",
  "required": ["store", "dates", "inserted", "ignored", "timestamp"],
  "properties": {
    "upload_id": {"type": "integer", "minimum": 0},
    "store":     {"type": "string", "minLength": 1},
    "dates": {
      "type": "array",
      "items": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"}
    },
    "inserted":  {"type": "integer", "minimum": 0},
    "ignored":   {"type": "integer", "minimum": 0},
    "timestamp": {"type": "string", "minLength": 1}
  }
}`

var takingsImported = jsonschema.MustCompileString("takings_imported.json", takingsImportedSchema)

// validateTakingsImported checks a raw event body before it is decoded, so a
// malformed producer is rejected instead of mirrored half-empty.
func validateTakingsImported(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := takingsImported.Validate(v); err != nil {
		return fmt.Errorf("message does not match schema: %w", err)
	}
	return nil
}
