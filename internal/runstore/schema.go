package runstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// snapshotSchema is the compiled JSON Schema for run snapshot files.
// Each file is validated once at ingestion so the aggregation pipeline
// only ever sees fixed-shape rows; downstream code never does ad hoc
// property lookups.
var snapshotSchema *jsonschema.Schema

const snapshotSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Run snapshot",
  "type": "object",
  "required": ["run", "rows"],
  "properties": {
    "run": {
      "type": "object",
      "required": ["run_name", "metric_names", "avg_latency_ms", "total_items"],
      "properties": {
        "run_name": {"type": "string", "minLength": 1},
        "model": {"type": "string"},
        "task": {"type": "string"},
        "dataset": {"type": "string"},
        "timestamp": {"type": "string"},
        "metric_names": {"type": "array", "items": {"type": "string"}},
        "avg_latency_ms": {"type": "number", "minimum": 0},
        "total_items": {"type": "integer", "minimum": 0}
      }
    },
    "rows": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["item_id", "scores"],
        "properties": {
          "item_id": {"type": "string", "minLength": 1},
          "scores": {
            "type": "object",
            "additionalProperties": {"type": ["number", "null"]}
          },
          "error": {"type": "boolean"}
        }
      }
    }
  }
}`

func init() {
	snapshotSchema = mustCompileSchema(snapshotSchemaJSON, "snapshot.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateSnapshotBytes validates a raw snapshot JSON document and
// returns one message per violation.
func ValidateSnapshotBytes(data []byte) []string {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return []string{fmt.Sprintf("JSON parse error: %v", err)}
	}
	return validateAgainstSchema(snapshotSchema, doc)
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
