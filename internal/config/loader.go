// Package config loads the schema-definition and label-mapping documents
// that describe the pipeline's output contracts.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ColumnDef is one ordered (column, type, required) triple of a table's
// output contract.
type ColumnDef struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

type schemaDocument struct {
	Tables map[string]struct {
		Columns []ColumnDef `yaml:"columns"`
	} `yaml:"tables"`
}

// LoadSchemas reads a schema-definition document:
//
//	tables:
//	  firm_master:
//	    columns:
//	      - {name: "CRD Number", type: int, required: true}
//
// keyed by output table name.
func LoadSchemas(path string) (map[string][]ColumnDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema document: %w", err)
	}

	var doc schemaDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema document: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("schema document %s declares no tables", path)
	}

	out := make(map[string][]ColumnDef, len(doc.Tables))
	for name, t := range doc.Tables {
		if len(t.Columns) == 0 {
			return nil, fmt.Errorf("schema for table %s declares no columns", name)
		}
		for _, c := range t.Columns {
			if c.Name == "" || c.Type == "" {
				return nil, fmt.Errorf("schema for table %s has a column without name or type", name)
			}
		}
		out[name] = t.Columns
	}
	return out, nil
}

type labelDocument struct {
	Columns map[string]struct {
		Label string `yaml:"label"`
	} `yaml:"columns"`
}

// LoadLabels reads a label-mapping document:
//
//	columns:
//	  1A: {label: "Firm Legal Name"}
//
// mapping raw column names to display labels. Entries without a label are
// skipped.
func LoadLabels(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading label document: %w", err)
	}

	var doc labelDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing label document: %w", err)
	}

	out := make(map[string]string, len(doc.Columns))
	for raw, entry := range doc.Columns {
		if entry.Label != "" {
			out[raw] = entry.Label
		}
	}
	return out, nil
}
