package consumer

import (
	"context"
	"fmt"
	"log"

	"github.com/riaintel/advflow/internal/config"
	"github.com/riaintel/advflow/processor"
	"github.com/riaintel/advflow/utils"
)

// SaveToExcel writes a human-readable preview workbook with one sheet per
// gold table. Columns can optionally be relabeled for business readers.
type SaveToExcel struct {
	filePath   string
	labels     map[string]string
	workbook   *utils.ExcelWorkbook
	processors []processor.Processor
}

func NewSaveToExcel(cfg map[string]interface{}) (*SaveToExcel, error) {
	filePath, ok := cfg["file_path"].(string)
	if !ok || filePath == "" {
		return nil, fmt.Errorf("file_path is required")
	}

	s := &SaveToExcel{
		filePath: filePath,
		workbook: utils.NewExcelWorkbook(filePath),
	}
	if lp, ok := cfg["label_path"].(string); ok && lp != "" {
		labels, err := config.LoadLabels(lp)
		if err != nil {
			return nil, fmt.Errorf("loading label document: %w", err)
		}
		s.labels = labels
	}
	return s, nil
}

func (s *SaveToExcel) Subscribe(p processor.Processor) {
	s.processors = append(s.processors, p)
}

func (s *SaveToExcel) Process(ctx context.Context, msg processor.Message) error {
	gt, ok := msg.Payload.(processor.GoldTable)
	if !ok {
		return fmt.Errorf("expected GoldTable payload, got %T", msg.Payload)
	}

	t := gt.Table
	if s.labels != nil {
		t = t.RenameColumns(s.labels)
	}

	rows := make([][]interface{}, 0, t.Len())
	for _, row := range t.Rows {
		record := make([]interface{}, len(t.Columns))
		for i, c := range t.Columns {
			record[i] = row[c]
		}
		rows = append(rows, record)
	}
	if err := s.workbook.AddSheet(gt.Name, t.Columns, rows); err != nil {
		return fmt.Errorf("adding sheet %s: %w", gt.Name, err)
	}
	log.Printf("SaveToExcel: added sheet %s (%d rows)", gt.Name, t.Len())

	for _, p := range s.processors {
		if err := p.Process(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Close saves the assembled workbook. Sinks that buffer must flush here.
func (s *SaveToExcel) Close() error {
	if err := s.workbook.Save(); err != nil {
		return err
	}
	log.Printf("SaveToExcel: saved %s", s.filePath)
	return s.workbook.Close()
}
