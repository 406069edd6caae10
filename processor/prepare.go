package processor

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null"

	"github.com/riaintel/advflow/pkg/table"
)

// Canonical silver column names the key preparer depends on.
const (
	ColumnCRD           = "1E1"
	ColumnReportDate    = "REPORT_DATE"
	ColumnDateSubmitted = "DATESUBMITTED"
	ColumnFilingID      = "FILING_ID"
)

const reportDateLayout = "20060102"

// submittedLayouts are tried in order for the lenient DATESUBMITTED parse.
var submittedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"01/02/2006",
	reportDateLayout,
}

// PrepareKeys derives the typed sort/filter keys from a silver snapshot and
// drops rows that lack a usable firm identifier or report date. Malformed
// legacy records are expected, so the per-row filter is silent; a snapshot
// missing the key columns altogether is a hard error. Output is sorted by
// the pipeline's single ordering key.
func PrepareKeys(t *table.Table) (*PreparedSet, error) {
	if t == nil || t.Len() == 0 {
		var cols []string
		if t != nil {
			cols = t.Columns
		}
		return &PreparedSet{Columns: cols, Rows: []PreparedRow{}}, nil
	}
	if !t.HasColumn(ColumnCRD) {
		return nil, &ValidationError{Column: ColumnCRD, Reason: "missing CRD column in silver data"}
	}
	if !t.HasColumn(ColumnReportDate) {
		return nil, &ValidationError{Column: ColumnReportDate, Reason: "missing report date column in silver data"}
	}

	prepared := make([]PreparedRow, 0, t.Len())
	for _, row := range t.Rows {
		crd, ok := parseCRD(row[ColumnCRD])
		if !ok {
			continue
		}
		reportDate, ok := parseReportDate(row[ColumnReportDate])
		if !ok {
			continue
		}
		prepared = append(prepared, PreparedRow{
			CRD:           crd,
			ReportDate:    reportDate,
			DateSubmitted: parseSubmitted(row[ColumnDateSubmitted]),
			FilingID:      cellNullString(row[ColumnFilingID]),
			Raw:           row,
		})
	}

	SortPrepared(prepared)
	return &PreparedSet{Columns: t.Columns, Rows: prepared}, nil
}

// SortPrepared orders rows by the ordering key shared by every reducer:
// crd ascending, report date descending, submission date descending with
// nulls last, filing id descending with nulls last.
func SortPrepared(rows []PreparedRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return lessPrepared(rows[i], rows[j])
	})
}

// lessPrepared is the single source of truth for "latest". Every reducer is
// a restriction of this total order; do not inline variants elsewhere.
func lessPrepared(a, b PreparedRow) bool {
	if a.CRD != b.CRD {
		return a.CRD < b.CRD
	}
	if !a.ReportDate.Equal(b.ReportDate) {
		return a.ReportDate.After(b.ReportDate)
	}
	if a.DateSubmitted.Valid != b.DateSubmitted.Valid {
		return a.DateSubmitted.Valid
	}
	if a.DateSubmitted.Valid && !a.DateSubmitted.Time.Equal(b.DateSubmitted.Time) {
		return a.DateSubmitted.Time.After(b.DateSubmitted.Time)
	}
	if a.FilingID.Valid != b.FilingID.Valid {
		return a.FilingID.Valid
	}
	if a.FilingID.Valid && a.FilingID.String != b.FilingID.String {
		return a.FilingID.String > b.FilingID.String
	}
	return false
}

// LatestPerPeriod keeps the first row under the ordering key for each
// (crd, report date) pair, then re-sorts ascending by (crd, report date)
// for stable downstream consumption.
func LatestPerPeriod(rows []PreparedRow) []PreparedRow {
	ordered := make([]PreparedRow, len(rows))
	copy(ordered, rows)
	SortPrepared(ordered)

	out := make([]PreparedRow, 0, len(ordered))
	for i, r := range ordered {
		if i > 0 && r.CRD == ordered[i-1].CRD && r.ReportDate.Equal(ordered[i-1].ReportDate) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CRD != out[j].CRD {
			return out[i].CRD < out[j].CRD
		}
		return out[i].ReportDate.Before(out[j].ReportDate)
	})
	return out
}

// LatestPerFirm keeps the first row under the ordering key for each crd.
// Output is crd-ascending.
func LatestPerFirm(rows []PreparedRow) []PreparedRow {
	ordered := make([]PreparedRow, len(rows))
	copy(ordered, rows)
	SortPrepared(ordered)

	out := make([]PreparedRow, 0, len(ordered))
	for i, r := range ordered {
		if i > 0 && r.CRD == ordered[i-1].CRD {
			continue
		}
		out = append(out, r)
	}
	return out
}

func parseCRD(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
		return 0, false
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

func parseReportDate(v interface{}) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d.Truncate(24 * time.Hour), true
	case string:
		t, err := time.ParseInLocation(reportDateLayout, strings.TrimSpace(d), time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

func parseSubmitted(v interface{}) null.Time {
	switch d := v.(type) {
	case time.Time:
		return null.TimeFrom(d)
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return null.Time{}
		}
		for _, layout := range submittedLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return null.TimeFrom(t)
			}
		}
		return null.Time{}
	default:
		return null.Time{}
	}
}

func cellNullString(v interface{}) null.String {
	switch s := v.(type) {
	case nil:
		return null.String{}
	case string:
		return null.StringFrom(s)
	default:
		return null.StringFrom(fmt.Sprintf("%v", s))
	}
}
