package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/riaintel/advflow/pkg/table"
	"github.com/riaintel/advflow/processor"
)

// SourceAdapter feeds messages into a chain of subscribed processors.
type SourceAdapter interface {
	Run(ctx context.Context) error
	Subscribe(processor.Processor)
}

// Filing dumps are named <prefix>_<published>_<period>.csv; the second
// yyyymmdd stamp is the reporting period the dump belongs to.
var filingNamePattern = regexp.MustCompile(`_(\d{8})_(\d{8})\.(?i:csv)$`)

func periodFromFilename(name string) (string, bool) {
	m := filingNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[2], true
}

// preferOriginal picks the canonical file among duplicates of the same
// period. Browser re-downloads carry a "(1)"-style marker, so names without
// one win first, then the shortest name; ties break lexicographically.
func preferOriginal(paths []string) string {
	sort.Slice(paths, func(i, j int) bool {
		di := strings.Contains(paths[i], "(1)")
		dj := strings.Contains(paths[j], "(1)")
		if di != dj {
			return !di
		}
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) < len(paths[j])
		}
		return paths[i] < paths[j]
	})
	return paths[0]
}

// readFilingCSV loads one regulator CSV dump. The dumps are Latin-1
// encoded; headers are canonicalized and deduplicated before use.
func readFilingCSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening filing CSV")
	}
	defer f.Close()

	r := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(f))
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "error reading header of %s", path)
	}
	columns := processor.NormalizeHeader(header)

	t := table.New(columns...)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error reading %s", path)
		}
		row := make(map[string]interface{}, len(columns))
		for i, c := range columns {
			if i < len(record) {
				row[c] = record[i]
			}
		}
		t.Append(row)
	}
	return t, nil
}

// readPlainCSV loads a UTF-8 CSV written by this pipeline, headers as-is.
func readPlainCSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening CSV")
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "error reading header of %s", path)
	}

	t := table.New(header...)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error reading %s", path)
		}
		row := make(map[string]interface{}, len(header))
		for i, c := range header {
			if i < len(record) && record[i] != "" {
				row[c] = record[i]
			}
		}
		t.Append(row)
	}
	return t, nil
}

func formatPeriod(period string) string {
	if len(period) != 8 {
		return period
	}
	return fmt.Sprintf("%s-%s-%s", period[:4], period[4:6], period[6:])
}
