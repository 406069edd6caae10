package processor

import (
	"context"
	"fmt"
	"log"

	"github.com/riaintel/advflow/internal/config"
)

// EnforceSchemas applies the declared output contract to every gold table
// passing through it. A table without a declared schema is a fatal
// precondition failure when strict, and passes through untouched otherwise.
type EnforceSchemas struct {
	schemas    map[string]Schema
	strict     bool
	processors []Processor
}

func NewEnforceSchemas(cfg map[string]interface{}) (*EnforceSchemas, error) {
	schemaPath, ok := cfg["schema_path"].(string)
	if !ok || schemaPath == "" {
		return nil, fmt.Errorf("schema_path is required")
	}

	loaded, err := config.LoadSchemas(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("loading schema document %s: %w", schemaPath, err)
	}

	e := &EnforceSchemas{schemas: make(map[string]Schema, len(loaded)), strict: true}
	if strict, ok := cfg["strict"].(bool); ok {
		e.strict = strict
	}
	for name, cols := range loaded {
		schema := Schema{Name: name}
		for _, c := range cols {
			schema.Columns = append(schema.Columns, SchemaColumn(c))
		}
		e.schemas[name] = schema
	}
	log.Printf("EnforceSchemas: loaded %d table schema(s) from %s", len(e.schemas), schemaPath)
	return e, nil
}

func (e *EnforceSchemas) Subscribe(p Processor) {
	e.processors = append(e.processors, p)
}

func (e *EnforceSchemas) Process(ctx context.Context, msg Message) error {
	gt, ok := msg.Payload.(GoldTable)
	if !ok {
		return fmt.Errorf("expected GoldTable payload, got %T", msg.Payload)
	}

	schema, declared := e.schemas[gt.Name]
	if !declared {
		if e.strict {
			return fmt.Errorf("no schema declared for table %s about to be written", gt.Name)
		}
		log.Printf("EnforceSchemas: no schema for %s, passing through", gt.Name)
	} else {
		enforced, err := EnforceSchema(gt.Table, schema)
		if err != nil {
			return err
		}
		gt = GoldTable{Name: gt.Name, Table: enforced}
	}

	out := Message{Payload: gt, Metadata: msg.Metadata}
	for _, p := range e.processors {
		if err := p.Process(ctx, out); err != nil {
			return err
		}
	}
	return nil
}
