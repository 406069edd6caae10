package consumer

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/riaintel/advflow/pkg/table"
	"github.com/riaintel/advflow/processor"
)

// StdoutSink prints a short preview of each table it receives. Useful for
// dry runs and pipeline debugging.
type StdoutSink struct {
	previewRows int
	processors  []processor.Processor
}

func NewStdoutSink(cfg map[string]interface{}) (*StdoutSink, error) {
	rows := 10
	if n, ok := cfg["preview_rows"].(int); ok && n > 0 {
		rows = n
	}
	return &StdoutSink{previewRows: rows}, nil
}

func (s *StdoutSink) Subscribe(p processor.Processor) {
	s.processors = append(s.processors, p)
}

func (s *StdoutSink) Process(ctx context.Context, msg processor.Message) error {
	var name string
	var t *table.Table
	switch payload := msg.Payload.(type) {
	case processor.GoldTable:
		name, t = payload.Name, payload.Table
	case *table.Table:
		t = payload
		if period, ok := msg.Period(); ok {
			name = "period " + period
		} else {
			name = "table"
		}
	default:
		return fmt.Errorf("unsupported payload type %T", msg.Payload)
	}

	fmt.Printf("=== %s: %d row(s), %d column(s) ===\n", name, t.Len(), len(t.Columns))
	w := tabwriter.NewWriter(os.Stdout, 1, 4, 2, ' ', 0)
	for i, c := range t.Columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
	for i, row := range t.Rows {
		if i >= s.previewRows {
			fmt.Fprintf(w, "... %d more row(s)\n", t.Len()-s.previewRows)
			break
		}
		for j, c := range t.Columns {
			if j > 0 {
				fmt.Fprint(w, "\t")
			}
			if row[c] == nil {
				fmt.Fprint(w, "<nil>")
			} else {
				fmt.Fprintf(w, "%v", row[c])
			}
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, p := range s.processors {
		if err := p.Process(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *StdoutSink) Close() error {
	return nil
}
