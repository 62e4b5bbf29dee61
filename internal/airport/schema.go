package airport

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dotcommander/airport/internal/errs"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	rawRecordSchema = mustCompile(map[string]any{
		"type":     "object",
		"required": []string{"source", "query"},
		"properties": map[string]any{
			"source": map[string]any{"enum": []string{SourceAirportDB, SourceAviationstack}},
			"query":  map[string]any{"type": "string", "minLength": 1},
			"code":   map[string]any{"type": "string"},
		},
	})
	recordSchema = mustCompile(recordObject())
	resultSchema = mustCompile(func() map[string]any {
		obj := recordObject()
		obj["properties"].(map[string]any)["summary"] = nonEmptyString()
		obj["required"] = append(obj["required"].([]string), "summary")
		return obj
	}())
	briefingSchema = mustCompile(map[string]any{
		"type":     "object",
		"required": []string{"record", "summary"},
		"properties": map[string]any{
			"record":  recordObject(),
			"summary": nonEmptyString(),
		},
	})
)

func recordObject() map[string]any {
	nullable := func(kind string) map[string]any {
		return map[string]any{"type": []string{kind, "null"}}
	}
	return map[string]any{
		"type": "object",
		"required": []string{
			"name", "city", "country", "iata", "icao",
			"latitude", "longitude", "timezone", "elevation",
		},
		"properties": map[string]any{
			"name":      nonEmptyString(),
			"city":      nullable("string"),
			"country":   nullable("string"),
			"iata":      nullable("string"),
			"icao":      nullable("string"),
			"latitude":  nullable("number"),
			"longitude": nullable("number"),
			"timezone":  nullable("string"),
			"elevation": nullable("number"),
		},
	}
}

func nonEmptyString() map[string]any {
	return map[string]any{"type": "string", "minLength": 1}
}

func mustCompile(raw map[string]any) *jsonschema.Schema {
	bts, err := json.Marshal(raw)
	if err != nil {
		panic(fmt.Sprintf("marshal schema: %v", err))
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(bts))
	if err != nil {
		panic(fmt.Sprintf("parse schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		panic(fmt.Sprintf("add schema resource: %v", err))
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return compiled
}

// validate checks v's JSON form against s. Failures are reported as a
// ValidationError for the named stage.
func validate(stage string, s *jsonschema.Schema, v any) error {
	bts, err := json.Marshal(v)
	if err != nil {
		return &errs.ValidationError{Stage: stage, Err: err}
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(bts))
	if err != nil {
		return &errs.ValidationError{Stage: stage, Err: err}
	}
	if err := s.Validate(inst); err != nil {
		return &errs.ValidationError{Stage: stage, Err: err}
	}
	return nil
}
