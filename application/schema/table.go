// Package schema generates JSON Schemas and machine-readable descriptions
// for tooling around the host: the configuration file and the ABI table.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/tetratelabs/wazero/api"

	"github.com/seal-runtime/seal-abi/abi"
	"github.com/seal-runtime/seal-abi/host"
)

// ConfigSchemaID identifies the schema of host configuration files.
const ConfigSchemaID = "urn:seal-abi:schema:config"

// TableSchemaID identifies the schema of the table descriptor printed by
// "seal-abi abi". It carries the host module name, so it changes with the
// table version.
const TableSchemaID = "urn:seal-abi:schema:" + abi.ModuleName

// TableDescriptor describes the ABI table for binding generators.
type TableDescriptor struct {
	Module  string            `json:"module" jsonschema:"description=Host module plugins import the table from"`
	Version uint32            `json:"version" jsonschema:"minimum=1"`
	Fields  []FieldDescriptor `json:"fields"`
}

// FieldDescriptor describes one table field.
type FieldDescriptor struct {
	Index     int      `json:"index" jsonschema:"description=Position in the table; stable within a version"`
	Name      string   `json:"name"`
	Params    []string `json:"params" jsonschema:"enum=i32,enum=i64,enum=f32,enum=f64"`
	Results   []string `json:"results"`
	Signature string   `json:"signature"`
}

// DescribeTable returns the descriptor of t.
func DescribeTable(t *abi.Table) TableDescriptor {
	d := TableDescriptor{
		Module:  abi.ModuleName,
		Version: t.Version(),
		Fields:  make([]FieldDescriptor, 0, t.Len()),
	}
	for i := range t.Len() {
		f := t.Field(i)
		d.Fields = append(d.Fields, FieldDescriptor{
			Index:     i,
			Name:      f.Name,
			Params:    typeNames(f.Params),
			Results:   typeNames(f.Results),
			Signature: f.Signature(),
		})
	}
	return d
}

func typeNames(types []api.ValueType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return names
}

// ConfigSchema returns the JSON Schema (Draft 2020-12) of host.Config as
// read by host.LoadConfig.
func ConfigSchema() ([]byte, error) {
	return generate(&host.Config{}, ConfigSchemaID, "seal-abi host configuration")
}

// TableSchema returns the JSON Schema of TableDescriptor.
func TableSchema() ([]byte, error) {
	return generate(&TableDescriptor{}, TableSchemaID, "ABI table "+abi.ModuleName)
}

func generate(v any, id, title string) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	s := reflector.Reflect(v)
	s.ID = jsonschema.ID(id)
	s.Title = title

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", id, err)
	}
	return b, nil
}
