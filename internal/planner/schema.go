package planner

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed plan_v1_schema.json
var planSchemaJSON []byte

// planSchema is compiled once at startup. The schema is embedded, so a
// compile failure is a build defect, not a runtime condition.
var planSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	// jsonschema.UnmarshalJSON keeps numbers as json.Number, which the
	// validator requires.
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(planSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("planner: unmarshal plan schema: %v", err))
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("plan_v1_schema.json", doc); err != nil {
		panic(fmt.Sprintf("planner: add plan schema resource: %v", err))
	}
	schema, err := c.Compile("plan_v1_schema.json")
	if err != nil {
		panic(fmt.Sprintf("planner: compile plan schema: %v", err))
	}
	return schema
}

// ValidationError reports a payload that failed the plan.v1 schema. It is
// never retried; callers fall back to the deterministic payload.
type ValidationError struct {
	Cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("plan payload failed schema validation: %v", e.Cause)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// ValidatePayload checks raw against the plan.v1 schema. Unknown keys are
// rejected at every level, so a rewriter cannot smuggle extra structure
// into the cache.
func ValidatePayload(raw []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ValidationError{Cause: err}
	}
	if err := planSchema.Validate(inst); err != nil {
		return &ValidationError{Cause: err}
	}
	return nil
}
