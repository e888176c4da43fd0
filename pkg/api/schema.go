package api

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/wilhg/ghostd/pkg/errmodel"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// compileSchema compiles an embedded schema file. Panics on a broken
// embedded schema since that is a build defect, not a runtime condition.
func compileSchema(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("embedded schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic(fmt.Sprintf("embedded schema %s: %v", name, err))
	}
	if err := c.AddResource("mem://"+name, doc); err != nil {
		panic(fmt.Sprintf("embedded schema %s: %v", name, err))
	}
	sch, err := c.Compile("mem://" + name)
	if err != nil {
		panic(fmt.Sprintf("embedded schema %s: %v", name, err))
	}
	return sch
}

var (
	completionServedSchema   = compileSchema("completion_served.json")
	completionAcceptedSchema = compileSchema("completion_accepted.json")
	fileChangedSchema        = compileSchema("file_changed.json")
)

// decodeValidated reads the request body, validates it against sch, and
// unmarshals it into out. Every failure maps to a validation error.
func decodeValidated(body io.Reader, sch *jsonschema.Schema, out any) error {
	raw, err := io.ReadAll(io.LimitReader(body, 16<<20))
	if err != nil {
		return errmodel.Validation("bad_body", "cannot read request body", nil)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return errmodel.Validation("bad_json", err.Error(), nil)
	}
	if err := sch.Validate(generic); err != nil {
		return errmodel.Validation("schema_violation", err.Error(), nil)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errmodel.Validation("bad_json", err.Error(), nil)
	}
	return nil
}
