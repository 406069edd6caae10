package processor

import (
	"context"
	"fmt"
	"log"
)

// MergeFilings joins each period's Base A and Base B filing tables on
// FILING_ID with the 1:1 merge contract and stamps the reporting period
// onto every merged row.
type MergeFilings struct {
	suffixes   [2]string
	processors []Processor
}

func NewMergeFilings(config map[string]interface{}) (*MergeFilings, error) {
	m := &MergeFilings{suffixes: [2]string{"_A", "_B"}}
	if s, ok := config["left_suffix"].(string); ok && s != "" {
		m.suffixes[0] = s
	}
	if s, ok := config["right_suffix"].(string); ok && s != "" {
		m.suffixes[1] = s
	}
	return m, nil
}

func (m *MergeFilings) Subscribe(p Processor) {
	m.processors = append(m.processors, p)
}

func (m *MergeFilings) Process(ctx context.Context, msg Message) error {
	pf, ok := msg.Payload.(PeriodFilings)
	if !ok {
		return fmt.Errorf("expected PeriodFilings payload, got %T", msg.Payload)
	}

	merged, err := PerfectMerge(pf.BaseA, pf.BaseB, MergeOptions{
		On:       ColumnFilingID,
		Suffixes: m.suffixes,
	})
	if err != nil {
		return fmt.Errorf("merging period %s: %w", pf.Period, err)
	}
	merged.SetConstant(ColumnReportDate, pf.Period)

	log.Printf("MergeFilings: period %s merged to %d rows", pf.Period, merged.Len())

	out := Message{
		Payload:  merged,
		Metadata: map[string]interface{}{"period": pf.Period},
	}
	for _, p := range m.processors {
		if err := p.Process(ctx, out); err != nil {
			return err
		}
	}
	return nil
}
