package processor

import (
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/riaintel/advflow/pkg/table"
)

// PreparedSet is the prepared silver snapshot handed to the gold builders:
// the keyed rows plus the canonical column order of the underlying table.
type PreparedSet struct {
	Columns []string
	Rows    []PreparedRow
}

// Gold table and column names. The display names (en-dashes included) are
// part of the published output contract.
const (
	TableFirmMaster        = "firm_master"
	TableFirmTimeseries    = "firm_timeseries"
	TableNoticeWide        = "notice_filings_wide"
	TableNoticeLong        = "notice_filings_long"
	TableFirmsLatest       = "firms_latest"
	TableNoticeStateCounts = "notice_state_counts"
)

const (
	colCRDNumber    = "CRD Number"
	colReportDate   = "Report Date"
	colFilingID     = "Filing ID"
	colLegalName    = "Firm Legal Name"
	colBusinessName = "Primary Business Name"
	colOwnership    = "Ownership Type"
	colCustody      = "Custody"
	colDisciplinary = "Disciplinary Info Provided"
	colEmployees    = "Employees – Total"
	colAUMTotal     = "Regulatory AUM – Total (USD)"
	colAUMNonDisc   = "Regulatory AUM – Non-Discretionary (USD)"
	colAUMDisc      = "Regulatory AUM – Discretionary (USD)"
	colStatesFiled  = "States Filed"
	colStatesCount  = "States Count"
	colState        = "State"
	colFirmCount    = "Firm Count"

	stateColumnPrefix = "2_"
)

// truthyTokens is the fixed set of values treated as true for boolean flag
// columns, compared case-insensitively after trimming.
var truthyTokens = map[string]bool{
	"Y": true, "YES": true, "TRUE": true, "T": true, "1": true,
}

// Truthy converts a raw flag cell into a boolean. Null and every
// unrecognized token are false.
func Truthy(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return truthyTokens[strings.ToUpper(strings.TrimSpace(b))]
	default:
		return false
	}
}

// BuildFirmMaster derives the one-row-per-firm master from the latest
// filing per firm.
func BuildFirmMaster(ps *PreparedSet) *table.Table {
	out := table.New(
		colCRDNumber, colLegalName, colBusinessName, colOwnership,
		colCustody, colDisciplinary, colEmployees, colAUMTotal, colAUMNonDisc,
	)
	latest := LatestPerFirm(ps.Rows)
	for _, r := range latest {
		out.Append(map[string]interface{}{
			colCRDNumber:    r.CRD,
			colLegalName:    cleanText(r.Raw["1A"]),
			colBusinessName: cleanText(r.Raw["1B1"]),
			colOwnership:    cleanText(r.Raw["3A"]),
			colCustody:      Truthy(r.Raw["7B"]),
			colDisciplinary: Truthy(r.Raw["11"]),
			colEmployees:    numericInt(r.Raw["5A"]),
			colAUMTotal:     numericFloat(r.Raw["5F3"]),
			colAUMNonDisc:   numericFloat(r.Raw["5F2B"]),
		})
	}
	return out
}

// BuildFirmTimeseries derives the per-firm-per-period metrics table, sorted
// ascending by (firm, period).
func BuildFirmTimeseries(ps *PreparedSet) *table.Table {
	out := table.New(
		colCRDNumber, colReportDate, colFilingID,
		colAUMDisc, colAUMNonDisc, colAUMTotal, colEmployees,
	)
	for _, r := range LatestPerPeriod(ps.Rows) {
		out.Append(map[string]interface{}{
			colCRDNumber:  r.CRD,
			colReportDate: r.ReportDate,
			colFilingID:   nullableString(r.FilingID.Ptr()),
			colAUMDisc:    numericFloat(r.Raw["5F2A"]),
			colAUMNonDisc: numericFloat(r.Raw["5F2B"]),
			colAUMTotal:   numericFloat(r.Raw["5F3"]),
			colEmployees:  numericInt(r.Raw["5A"]),
		})
	}
	return out
}

// stateColumns discovers the state notice flag columns and returns them as
// (canonical column, state code) pairs sorted by column name.
func stateColumns(columns []string) ([]string, []string) {
	var cols []string
	for _, c := range columns {
		if strings.HasPrefix(c, stateColumnPrefix) && len(c) > len(stateColumnPrefix) {
			cols = append(cols, c)
		}
	}
	sort.Strings(cols)
	codes := make([]string, len(cols))
	for i, c := range cols {
		codes[i] = c[len(stateColumnPrefix):]
	}
	return cols, codes
}

// BuildNoticeFilingsWide derives one row per firm-period with a boolean
// column per state plus the States Filed / States Count summaries. When the
// input carries no state columns the output degenerates to the four base
// columns with zero counts and no boolean columns at all.
func BuildNoticeFilingsWide(ps *PreparedSet) *table.Table {
	stateCols, stateCodes := stateColumns(ps.Columns)

	baseCols := []string{colCRDNumber, colReportDate, colFilingID, colStatesFiled, colStatesCount}
	out := table.New(append(baseCols, stateCodes...)...)

	for _, r := range LatestPerPeriod(ps.Rows) {
		row := map[string]interface{}{
			colCRDNumber:  r.CRD,
			colReportDate: r.ReportDate,
			colFilingID:   nullableString(r.FilingID.Ptr()),
		}
		var filed []string
		for i, sc := range stateCols {
			flag := Truthy(r.Raw[sc])
			row[stateCodes[i]] = flag
			if flag {
				filed = append(filed, stateCodes[i])
			}
		}
		row[colStatesCount] = int64(len(filed))
		if len(filed) > 0 {
			row[colStatesFiled] = strings.Join(filed, "|")
		} else {
			row[colStatesFiled] = nil
		}
		out.Append(row)
	}
	return out
}

// BuildNoticeFilingsLong derives one row per (firm, period, state) where
// the notice flag is true, sorted by (firm, period, state).
func BuildNoticeFilingsLong(ps *PreparedSet) *table.Table {
	out := table.New(colCRDNumber, colReportDate, colState)
	stateCols, stateCodes := stateColumns(ps.Columns)
	if len(stateCols) == 0 {
		return out
	}
	for _, r := range LatestPerPeriod(ps.Rows) {
		for i, sc := range stateCols {
			if Truthy(r.Raw[sc]) {
				out.Append(map[string]interface{}{
					colCRDNumber:  r.CRD,
					colReportDate: r.ReportDate,
					colState:      stateCodes[i],
				})
			}
		}
	}
	out.SortBy(func(a, b map[string]interface{}) bool {
		ac, bc := a[colCRDNumber].(int64), b[colCRDNumber].(int64)
		if ac != bc {
			return ac < bc
		}
		ad, bd := a[colReportDate].(time.Time), b[colReportDate].(time.Time)
		if !ad.Equal(bd) {
			return ad.Before(bd)
		}
		return a[colState].(string) < b[colState].(string)
	})
	return out
}

// BuildFirmsLatest inner-joins the firm master's static columns with each
// firm's most recent timeseries row. Firms missing from either side are
// dropped; the drop count is logged so silent shrinkage is visible.
func BuildFirmsLatest(master, timeseries *table.Table) *table.Table {
	out := table.New(
		colCRDNumber, colLegalName, colBusinessName, colOwnership,
		colCustody, colDisciplinary, colReportDate, colFilingID,
		colAUMDisc, colAUMNonDisc, colAUMTotal, colEmployees,
	)
	if master.Len() == 0 || timeseries.Len() == 0 {
		return out
	}

	// Most recent timeseries row per firm.
	latest := make(map[int64]map[string]interface{}, timeseries.Len())
	for _, row := range timeseries.Rows {
		crd, ok := row[colCRDNumber].(int64)
		if !ok {
			continue
		}
		prev, seen := latest[crd]
		if !seen {
			latest[crd] = row
			continue
		}
		if rowTime(row, colReportDate).After(rowTime(prev, colReportDate)) {
			latest[crd] = row
		}
	}

	dropped := 0
	for _, mrow := range master.Rows {
		crd, ok := mrow[colCRDNumber].(int64)
		if !ok {
			continue
		}
		trow, found := latest[crd]
		if !found {
			dropped++
			continue
		}
		out.Append(map[string]interface{}{
			colCRDNumber:    crd,
			colLegalName:    mrow[colLegalName],
			colBusinessName: mrow[colBusinessName],
			colOwnership:    mrow[colOwnership],
			colCustody:      mrow[colCustody],
			colDisciplinary: mrow[colDisciplinary],
			colReportDate:   trow[colReportDate],
			colFilingID:     trow[colFilingID],
			colAUMDisc:      trow[colAUMDisc],
			colAUMNonDisc:   trow[colAUMNonDisc],
			colAUMTotal:     trow[colAUMTotal],
			colEmployees:    trow[colEmployees],
		})
	}
	for crd := range latest {
		if !hasCRD(master, crd) {
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("BuildFirmsLatest: inner join dropped %d firm(s) present on only one side", dropped)
	}

	out.SortBy(func(a, b map[string]interface{}) bool {
		return a[colCRDNumber].(int64) < b[colCRDNumber].(int64)
	})
	return out
}

// BuildNoticeStateCounts counts, per state, the firms whose most recent
// period shows a true notice flag. Sorted by count descending then state
// ascending.
func BuildNoticeStateCounts(wide *table.Table) *table.Table {
	out := table.New(colState, colFirmCount)
	base := map[string]bool{
		colCRDNumber: true, colReportDate: true, colFilingID: true,
		colStatesFiled: true, colStatesCount: true,
	}
	var stateCodes []string
	for _, c := range wide.Columns {
		if !base[c] {
			stateCodes = append(stateCodes, c)
		}
	}
	if wide.Len() == 0 || len(stateCodes) == 0 {
		return out
	}

	// Restrict to each firm's most recent period.
	latest := make(map[int64]map[string]interface{}, wide.Len())
	for _, row := range wide.Rows {
		crd, ok := row[colCRDNumber].(int64)
		if !ok {
			continue
		}
		prev, seen := latest[crd]
		if !seen || rowTime(row, colReportDate).After(rowTime(prev, colReportDate)) {
			latest[crd] = row
		}
	}

	counts := make(map[string]int64, len(stateCodes))
	for _, row := range latest {
		for _, code := range stateCodes {
			if flag, ok := row[code].(bool); ok && flag {
				counts[code]++
			}
		}
	}
	for _, code := range stateCodes {
		out.Append(map[string]interface{}{
			colState:     code,
			colFirmCount: counts[code],
		})
	}
	out.SortBy(func(a, b map[string]interface{}) bool {
		ac, bc := a[colFirmCount].(int64), b[colFirmCount].(int64)
		if ac != bc {
			return ac > bc
		}
		return a[colState].(string) < b[colState].(string)
	})
	return out
}

func hasCRD(t *table.Table, crd int64) bool {
	for _, row := range t.Rows {
		if v, ok := row[colCRDNumber].(int64); ok && v == crd {
			return true
		}
	}
	return false
}

func rowTime(row map[string]interface{}, column string) time.Time {
	if t, ok := row[column].(time.Time); ok {
		return t
	}
	return time.Time{}
}

// cleanText trims a string cell; empty or non-string cells become nil.
func cleanText(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

// numericFloat parses a cell to float64, nil when unparsable.
func numericFloat(v interface{}) interface{} {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return f
	default:
		return nil
	}
}

// numericInt parses a cell to an integer, rounding to nearest; nil when
// unparsable.
func numericInt(v interface{}) interface{} {
	f := numericFloat(v)
	if f == nil {
		return nil
	}
	return int64(math.Round(f.(float64)))
}

func nullableString(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
