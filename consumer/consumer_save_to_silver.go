package consumer

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/riaintel/advflow/internal/config"
	"github.com/riaintel/advflow/pkg/table"
	"github.com/riaintel/advflow/processor"
)

// Silver store layout constants shared with the silver source adapter.
const (
	PartitionYearKey  = "report_year"
	PartitionMonthKey = "report_month"
	SilverParquetPart = "part.parquet"
	SilverCSVPart     = "part.csv"
)

// SaveToSilverConfig configures the partitioned silver store writer.
type SaveToSilverConfig struct {
	SilverDir   string // base directory of the silver store
	Format      string // "parquet" (default) or "csv"
	Compression string // parquet codec
	BIDir       string // optional labeled copy directory
	LabelPath   string // label document for the BI copy
}

// SaveToSilver persists each period's merged filings as one
// report_year=Y/report_month=M partition, overwriting the partition
// wholesale. Callers must serialize writers; there is no internal locking.
type SaveToSilver struct {
	cfg        SaveToSilverConfig
	labels     map[string]string
	processors []processor.Processor
}

func NewSaveToSilver(cfg map[string]interface{}) (*SaveToSilver, error) {
	var c SaveToSilverConfig
	if dir, ok := cfg["silver_dir"].(string); ok && dir != "" {
		c.SilverDir = dir
	} else {
		return nil, fmt.Errorf("silver_dir is required")
	}
	if format, ok := cfg["format"].(string); ok {
		c.Format = format
	} else {
		c.Format = "parquet"
	}
	if c.Format != "parquet" && c.Format != "csv" {
		return nil, fmt.Errorf("unsupported silver format: %s", c.Format)
	}
	if comp, ok := cfg["compression"].(string); ok {
		c.Compression = comp
	}
	if bi, ok := cfg["bi_dir"].(string); ok {
		c.BIDir = bi
	}
	if lp, ok := cfg["label_path"].(string); ok {
		c.LabelPath = lp
	}
	if c.BIDir != "" && c.LabelPath == "" {
		return nil, fmt.Errorf("bi_dir requires label_path")
	}

	s := &SaveToSilver{cfg: c}
	if c.LabelPath != "" {
		labels, err := config.LoadLabels(c.LabelPath)
		if err != nil {
			return nil, fmt.Errorf("loading label document: %w", err)
		}
		s.labels = labels
		log.Printf("SaveToSilver: loaded %d column label(s) from %s", len(labels), c.LabelPath)
	}
	return s, nil
}

func (s *SaveToSilver) Subscribe(p processor.Processor) {
	s.processors = append(s.processors, p)
}

func (s *SaveToSilver) Process(ctx context.Context, msg processor.Message) error {
	merged, ok := msg.Payload.(*table.Table)
	if !ok {
		return fmt.Errorf("expected *table.Table payload, got %T", msg.Payload)
	}
	period, ok := msg.Period()
	if !ok {
		return fmt.Errorf("merged filing message carries no period metadata")
	}

	reportDate, err := time.ParseInLocation("20060102", period, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid report period %q: %w", period, err)
	}
	year, month := int64(reportDate.Year()), int64(reportDate.Month())

	if err := s.writePartition(s.cfg.SilverDir, merged, year, month); err != nil {
		return err
	}
	log.Printf("SaveToSilver: wrote partition %s=%d/%s=%d (%d rows)",
		PartitionYearKey, year, PartitionMonthKey, month, merged.Len())

	if s.cfg.BIDir != "" {
		labeled := merged.RenameColumns(s.labels)
		if err := s.writePartition(s.cfg.BIDir, labeled, year, month); err != nil {
			return fmt.Errorf("writing BI-labeled silver: %w", err)
		}
	}
	return nil
}

// writePartition overwrites one (year, month) partition.
func (s *SaveToSilver) writePartition(baseDir string, t *table.Table, year, month int64) error {
	dir := filepath.Join(baseDir,
		fmt.Sprintf("%s=%d", PartitionYearKey, year),
		fmt.Sprintf("%s=%d", PartitionMonthKey, month))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing partition %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating partition %s: %w", dir, err)
	}

	if s.cfg.Format == "parquet" {
		// Partition keys ride along inside the parquet files.
		part := t.Copy()
		part.SetConstant(PartitionYearKey, year)
		part.SetConstant(PartitionMonthKey, month)
		data, err := writeParquetBytes(part, compressionCodec(s.cfg.Compression))
		if err != nil {
			return fmt.Errorf("encoding partition parquet: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, SilverParquetPart), data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", SilverParquetPart, err)
		}
		return nil
	}

	// CSV fallback: partition keys live in the directory names only.
	return writeCSVFile(filepath.Join(dir, SilverCSVPart), t)
}

func writeCSVFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			record[i] = csvCell(row[c])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}

func csvCell(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case time.Time:
		return c.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", c)
	}
}
