package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// GoldBuilder derives the analytical tables from a PreparedSet and emits
// one GoldTable message per table. A failure on one table does not stop
// the siblings; all failures are joined into the returned error so the run
// still reports non-zero.
type GoldBuilder struct {
	processors []Processor
}

func NewGoldBuilder(config map[string]interface{}) (*GoldBuilder, error) {
	return &GoldBuilder{}, nil
}

func (g *GoldBuilder) Subscribe(p Processor) {
	g.processors = append(g.processors, p)
}

func (g *GoldBuilder) Process(ctx context.Context, msg Message) error {
	ps, ok := msg.Payload.(*PreparedSet)
	if !ok {
		return fmt.Errorf("expected *PreparedSet payload, got %T", msg.Payload)
	}

	master := BuildFirmMaster(ps)
	timeseries := BuildFirmTimeseries(ps)
	noticeWide := BuildNoticeFilingsWide(ps)
	noticeLong := BuildNoticeFilingsLong(ps)

	tables := []GoldTable{
		{Name: TableFirmMaster, Table: master},
		{Name: TableFirmTimeseries, Table: timeseries},
		{Name: TableNoticeWide, Table: noticeWide},
		{Name: TableNoticeLong, Table: noticeLong},
		{Name: TableFirmsLatest, Table: BuildFirmsLatest(master, timeseries)},
		{Name: TableNoticeStateCounts, Table: BuildNoticeStateCounts(noticeWide)},
	}

	var failures []error
	for _, gt := range tables {
		log.Printf("GoldBuilder: %s has %d rows, %d columns", gt.Name, gt.Table.Len(), len(gt.Table.Columns))
		if err := g.emit(ctx, gt, msg.Metadata); err != nil {
			log.Printf("GoldBuilder: table %s failed: %v", gt.Name, err)
			failures = append(failures, fmt.Errorf("table %s: %w", gt.Name, err))
		}
	}
	return errors.Join(failures...)
}

func (g *GoldBuilder) emit(ctx context.Context, gt GoldTable, metadata map[string]interface{}) error {
	out := Message{Payload: gt, Metadata: metadata}
	for _, p := range g.processors {
		if err := p.Process(ctx, out); err != nil {
			return err
		}
	}
	return nil
}
