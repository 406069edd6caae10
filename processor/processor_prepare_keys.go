package processor

import (
	"context"
	"fmt"
	"log"

	"github.com/riaintel/advflow/pkg/table"
)

// PrepareKeysProcessor turns a loaded silver snapshot into a PreparedSet
// for the gold builders.
type PrepareKeysProcessor struct {
	processors []Processor
}

func NewPrepareKeysProcessor(config map[string]interface{}) (*PrepareKeysProcessor, error) {
	return &PrepareKeysProcessor{}, nil
}

func (p *PrepareKeysProcessor) Subscribe(next Processor) {
	p.processors = append(p.processors, next)
}

func (p *PrepareKeysProcessor) Process(ctx context.Context, msg Message) error {
	t, ok := msg.Payload.(*table.Table)
	if !ok {
		return fmt.Errorf("expected *table.Table payload, got %T", msg.Payload)
	}

	prepared, err := PrepareKeys(t)
	if err != nil {
		return fmt.Errorf("preparing keys: %w", err)
	}
	log.Printf("PrepareKeys: %d of %d rows keyed", len(prepared.Rows), t.Len())

	out := Message{Payload: prepared, Metadata: msg.Metadata}
	for _, next := range p.processors {
		if err := next.Process(ctx, out); err != nil {
			return err
		}
	}
	return nil
}
