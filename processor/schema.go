package processor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/riaintel/advflow/pkg/table"
)

// Column types a schema may declare.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeDate   = "date"
)

// SchemaColumn is one ordered entry of an output column contract.
type SchemaColumn struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

// Schema is the output contract for one named table.
type Schema struct {
	Name    string
	Columns []SchemaColumn
}

// falsyTokens complements the truthy set for strict boolean coercion.
var falsyTokens = map[string]bool{
	"N": true, "NO": true, "FALSE": true, "F": true, "0": true, "": true,
}

// EnforceSchema produces a table with exactly the declared columns, in
// order, each cell coerced to the declared type. A coercion failure on a
// required column is a SchemaViolationError; nullable columns degrade to
// null. A declared column absent from the source is a violation when
// required, an all-null column otherwise.
func EnforceSchema(t *table.Table, schema Schema) (*table.Table, error) {
	names := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		names[i] = c.Name
	}
	out := table.New(names...)

	for _, sc := range schema.Columns {
		if sc.Required && !t.HasColumn(sc.Name) {
			return nil, &SchemaViolationError{Table: schema.Name, Column: sc.Name, Value: "<missing column>"}
		}
	}

	for _, row := range t.Rows {
		nr := make(map[string]interface{}, len(schema.Columns))
		for _, sc := range schema.Columns {
			coerced, err := coerce(row[sc.Name], sc.Type)
			if err != nil {
				if sc.Required {
					return nil, &SchemaViolationError{Table: schema.Name, Column: sc.Name, Value: row[sc.Name]}
				}
				coerced = nil
			}
			if coerced == nil && sc.Required {
				return nil, &SchemaViolationError{Table: schema.Name, Column: sc.Name, Value: nil}
			}
			nr[sc.Name] = coerced
		}
		out.Append(nr)
	}
	return out, nil
}

// ApplyLabels renames matching columns to their display labels; unmatched
// columns pass through. The result is a cosmetic preview artifact and must
// never be fed back through schema enforcement.
func ApplyLabels(t *table.Table, labels map[string]string) *table.Table {
	return t.RenameColumns(labels)
}

func coerce(v interface{}, typ string) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch typ {
	case TypeString:
		switch s := v.(type) {
		case string:
			return s, nil
		case time.Time:
			return s.Format("2006-01-02"), nil
		default:
			return fmt.Sprintf("%v", s), nil
		}
	case TypeInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case float64:
			if n == math.Trunc(n) {
				return int64(n), nil
			}
			return nil, fmt.Errorf("non-integral value %v", n)
		case string:
			s := strings.TrimSpace(n)
			if s == "" {
				return nil, nil
			}
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot parse %q as int", n)
			}
			return i, nil
		default:
			return nil, fmt.Errorf("cannot coerce %T to int", v)
		}
	case TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		case string:
			s := strings.TrimSpace(n)
			if s == "" {
				return nil, nil
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot parse %q as float", n)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("cannot coerce %T to float", v)
		}
	case TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			u := strings.ToUpper(strings.TrimSpace(b))
			if truthyTokens[u] {
				return true, nil
			}
			if falsyTokens[u] {
				return false, nil
			}
			return nil, fmt.Errorf("cannot parse %q as bool", b)
		default:
			return nil, fmt.Errorf("cannot coerce %T to bool", v)
		}
	case TypeDate:
		switch d := v.(type) {
		case time.Time:
			return d, nil
		case string:
			s := strings.TrimSpace(d)
			if s == "" {
				return nil, nil
			}
			for _, layout := range []string{reportDateLayout, "2006-01-02", time.RFC3339} {
				if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
					return t, nil
				}
			}
			return nil, fmt.Errorf("cannot parse %q as date", d)
		default:
			return nil, fmt.Errorf("cannot coerce %T to date", v)
		}
	default:
		return nil, fmt.Errorf("unknown schema type %q", typ)
	}
}
