package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/riaintel/advflow/consumer"
	"github.com/riaintel/advflow/pkg/table"
	"github.com/riaintel/advflow/processor"
)

// SourceFileColumn annotates each silver row with the partition file it
// came from, for lineage debugging downstream.
const SourceFileColumn = "__source_file"

// SilverSourceAdapter reads every partition of the silver store, concatenates
// them and emits a single table message for the gold pipeline.
type SilverSourceAdapter struct {
	silverDir  string
	processors []processor.Processor
}

func NewSilverSourceAdapter(config map[string]interface{}) (SourceAdapter, error) {
	silverDir, ok := config["silver_dir"].(string)
	if !ok || silverDir == "" {
		return nil, errors.New("silver_dir must be specified")
	}
	return &SilverSourceAdapter{silverDir: silverDir}, nil
}

func (adapter *SilverSourceAdapter) Subscribe(receiver processor.Processor) {
	adapter.processors = append(adapter.processors, receiver)
}

func (adapter *SilverSourceAdapter) Run(ctx context.Context) error {
	log.Printf("SilverSource: reading silver store at %s", adapter.silverDir)

	parts, err := adapter.findPartitions()
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return fmt.Errorf("no silver partitions found under %s", adapter.silverDir)
	}
	sort.Strings(parts)

	tables := make([]*table.Table, 0, len(parts))
	totalRows := 0
	for _, path := range parts {
		t, err := adapter.readPartition(ctx, path)
		if err != nil {
			return errors.Wrapf(err, "failed to read partition %s", path)
		}
		rel, relErr := filepath.Rel(adapter.silverDir, path)
		if relErr != nil {
			rel = path
		}
		t.SetConstant(SourceFileColumn, rel)
		tables = append(tables, t)
		totalRows += t.Len()
	}

	combined := table.Concat(tables...)
	log.Printf("SilverSource: loaded %d partition(s), %d row(s), %d column(s)",
		len(parts), totalRows, len(combined.Columns))

	msg := processor.Message{Payload: combined}
	for _, p := range adapter.processors {
		if err := p.Process(ctx, msg); err != nil {
			return errors.Wrapf(err, "error in processor %T", p)
		}
	}
	return nil
}

// findPartitions walks the store for part files; parquet is preferred, a
// CSV part is picked up only when the partition has no parquet.
func (adapter *SilverSourceAdapter) findPartitions() ([]string, error) {
	parquetByDir := map[string]string{}
	csvByDir := map[string]string{}

	err := filepath.WalkDir(adapter.silverDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Base(path) {
		case consumer.SilverParquetPart:
			parquetByDir[filepath.Dir(path)] = path
		case consumer.SilverCSVPart:
			csvByDir[filepath.Dir(path)] = path
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "error walking silver store")
	}

	parts := make([]string, 0, len(parquetByDir)+len(csvByDir))
	for _, p := range parquetByDir {
		parts = append(parts, p)
	}
	for dir, p := range csvByDir {
		if _, ok := parquetByDir[dir]; !ok {
			parts = append(parts, p)
		}
	}
	return parts, nil
}

func (adapter *SilverSourceAdapter) readPartition(ctx context.Context, path string) (*table.Table, error) {
	if filepath.Base(path) == consumer.SilverParquetPart {
		return consumer.ReadParquetTable(ctx, path)
	}

	// CSV partitions keep the keys only in the directory names.
	t, err := readPlainCSV(path)
	if err != nil {
		return nil, err
	}
	year, month, err := partitionKeysFromPath(path)
	if err != nil {
		return nil, err
	}
	t.SetConstant(consumer.PartitionYearKey, year)
	t.SetConstant(consumer.PartitionMonthKey, month)
	return t, nil
}

func partitionKeysFromPath(path string) (int64, int64, error) {
	dir := filepath.Dir(path)
	monthStr, ok := strings.CutPrefix(filepath.Base(dir), consumer.PartitionMonthKey+"=")
	if !ok {
		return 0, 0, fmt.Errorf("partition path %s lacks %s key", path, consumer.PartitionMonthKey)
	}
	yearStr, ok := strings.CutPrefix(filepath.Base(filepath.Dir(dir)), consumer.PartitionYearKey+"=")
	if !ok {
		return 0, 0, fmt.Errorf("partition path %s lacks %s key", path, consumer.PartitionYearKey)
	}
	year, err := strconv.ParseInt(yearStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad %s value in %s", consumer.PartitionYearKey, path)
	}
	month, err := strconv.ParseInt(monthStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad %s value in %s", consumer.PartitionMonthKey, path)
	}
	return year, month, nil
}
