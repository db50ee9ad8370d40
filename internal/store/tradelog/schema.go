package tradelog

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const recordsSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["symbol", "datetime", "cid"],
    "properties": {
      "symbol":   {"type": "string"},
      "datetime": {"type": "string"},
      "cid":      {"type": "string"},
      "trace_id": {"type": "string"},
      "side":     {"type": "string"},
      "strength": {"type": "number"},
      "meta":     {"type": "object", "additionalProperties": {"type": "string"}}
    }
  }
}`

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("trades.json", strings.NewReader(recordsSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("trades.json")
}
