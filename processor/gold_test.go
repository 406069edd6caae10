package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riaintel/advflow/pkg/table"
)

func preparedFixture(t *testing.T) *PreparedSet {
	t.Helper()
	tbl := table.New(
		ColumnCRD, ColumnReportDate, ColumnDateSubmitted, ColumnFilingID,
		"1A", "1B1", "3A", "7B", "11", "5A", "5F2A", "5F2B", "5F3",
		"2_CA", "2_NY",
	)
	rows := []map[string]interface{}{
		{
			ColumnCRD: "100", ColumnReportDate: "20230101", ColumnDateSubmitted: "2023-01-05", ColumnFilingID: "F10",
			"1A": "Alpha Advisers LLC", "1B1": "Alpha", "3A": "LLC", "7B": "Y", "11": "N",
			"5A": "10", "5F2A": "900000", "5F2B": "100000", "5F3": "1000000",
			"2_CA": "Y", "2_NY": "N",
		},
		{
			ColumnCRD: "100", ColumnReportDate: "20230401", ColumnDateSubmitted: "2023-04-10", ColumnFilingID: "F12",
			"1A": " Alpha Advisers LLC ", "1B1": "Alpha", "3A": "LLC", "7B": "N", "11": "N",
			"5A": "12", "5F2A": "1100000", "5F2B": "150000", "5F3": "1250000",
			"2_CA": "Y", "2_NY": "Y",
		},
		{
			ColumnCRD: "200", ColumnReportDate: "20230101", ColumnDateSubmitted: "2023-01-06", ColumnFilingID: "F20",
			"1A": "Beta Capital", "1B1": "", "3A": "Corp", "7B": "N", "11": "Y",
			"5A": "5", "5F2A": "", "5F2B": "", "5F3": "5000000",
			"2_CA": "N", "2_NY": "Y",
		},
	}
	for _, r := range rows {
		tbl.Append(r)
	}
	ps, err := PrepareKeys(tbl)
	require.NoError(t, err)
	return ps
}

func TestTruthy(t *testing.T) {
	for _, v := range []interface{}{"Y", "y", "Yes", " TRUE ", "t", "1", true} {
		assert.True(t, Truthy(v), "%v", v)
	}
	for _, v := range []interface{}{"N", "no", "FALSE", "0", "", "2", "maybe", nil, int64(1)} {
		assert.False(t, Truthy(v), "%v", v)
	}
}

func TestBuildFirmMaster(t *testing.T) {
	master := BuildFirmMaster(preparedFixture(t))
	require.Equal(t, 2, master.Len())

	// Firm 100 reflects its latest filing (20230401).
	assert.Equal(t, int64(100), master.Get(0, "CRD Number"))
	assert.Equal(t, "Alpha Advisers LLC", master.Get(0, "Firm Legal Name"))
	assert.Equal(t, false, master.Get(0, "Custody"))
	assert.Equal(t, int64(12), master.Get(0, "Employees – Total"))
	assert.Equal(t, 1250000.0, master.Get(0, "Regulatory AUM – Total (USD)"))

	assert.Equal(t, int64(200), master.Get(1, "CRD Number"))
	assert.Equal(t, true, master.Get(1, "Disciplinary Info Provided"))
	assert.Nil(t, master.Get(1, "Primary Business Name"))
	assert.Nil(t, master.Get(1, "Regulatory AUM – Non-Discretionary (USD)"))
}

func TestBuildFirmTimeseries(t *testing.T) {
	ts := BuildFirmTimeseries(preparedFixture(t))
	require.Equal(t, 3, ts.Len())

	// Ascending (firm, period).
	assert.Equal(t, int64(100), ts.Get(0, "CRD Number"))
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), ts.Get(0, "Report Date"))
	assert.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), ts.Get(1, "Report Date"))
	assert.Equal(t, int64(200), ts.Get(2, "CRD Number"))
	assert.Equal(t, 900000.0, ts.Get(0, "Regulatory AUM – Discretionary (USD)"))
	assert.Nil(t, ts.Get(2, "Regulatory AUM – Discretionary (USD)"))
}

func TestBuildNoticeFilingsWide(t *testing.T) {
	wide := BuildNoticeFilingsWide(preparedFixture(t))
	require.Equal(t, 3, wide.Len())
	assert.Equal(t,
		[]string{"CRD Number", "Report Date", "Filing ID", "States Filed", "States Count", "CA", "NY"},
		wide.Columns)

	// Firm 100, 20230101: CA only.
	assert.Equal(t, true, wide.Get(0, "CA"))
	assert.Equal(t, false, wide.Get(0, "NY"))
	assert.Equal(t, "CA", wide.Get(0, "States Filed"))
	assert.Equal(t, int64(1), wide.Get(0, "States Count"))

	// Firm 100, 20230401: both.
	assert.Equal(t, "CA|NY", wide.Get(1, "States Filed"))
	assert.Equal(t, int64(2), wide.Get(1, "States Count"))

	// Firm 200: NY only.
	assert.Equal(t, "NY", wide.Get(2, "States Filed"))
}

func TestBuildNoticeFilingsWideNoStateColumns(t *testing.T) {
	tbl := table.New(ColumnCRD, ColumnReportDate)
	tbl.Append(map[string]interface{}{ColumnCRD: "100", ColumnReportDate: "20230101"})
	ps, err := PrepareKeys(tbl)
	require.NoError(t, err)

	wide := BuildNoticeFilingsWide(ps)
	assert.Equal(t,
		[]string{"CRD Number", "Report Date", "Filing ID", "States Filed", "States Count"},
		wide.Columns)
	require.Equal(t, 1, wide.Len())
	assert.Nil(t, wide.Get(0, "States Filed"))
	assert.Equal(t, int64(0), wide.Get(0, "States Count"))
}

func TestBuildNoticeFilingsLong(t *testing.T) {
	long := BuildNoticeFilingsLong(preparedFixture(t))
	require.Equal(t, 4, long.Len())

	// (firm, period, state) ascending.
	assert.Equal(t, "CA", long.Get(0, "State"))
	assert.Equal(t, "CA", long.Get(1, "State"))
	assert.Equal(t, "NY", long.Get(2, "State"))
	assert.Equal(t, int64(200), long.Get(3, "CRD Number"))
	assert.Equal(t, "NY", long.Get(3, "State"))
}

func TestBuildFirmsLatest(t *testing.T) {
	ps := preparedFixture(t)
	master := BuildFirmMaster(ps)
	ts := BuildFirmTimeseries(ps)

	latest := BuildFirmsLatest(master, ts)
	require.Equal(t, 2, latest.Len())

	// Static columns from master, metrics from the newest period.
	assert.Equal(t, "Alpha Advisers LLC", latest.Get(0, "Firm Legal Name"))
	assert.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), latest.Get(0, "Report Date"))
	assert.Equal(t, 1250000.0, latest.Get(0, "Regulatory AUM – Total (USD)"))
	assert.Equal(t, int64(200), latest.Get(1, "CRD Number"))
}

func TestBuildFirmsLatestEmptySides(t *testing.T) {
	ps := preparedFixture(t)
	empty := table.New("CRD Number")

	latest := BuildFirmsLatest(BuildFirmMaster(ps), empty)
	assert.Equal(t, 0, latest.Len())

	latest = BuildFirmsLatest(empty, BuildFirmTimeseries(ps))
	assert.Equal(t, 0, latest.Len())
}

func TestBuildNoticeStateCounts(t *testing.T) {
	wide := BuildNoticeFilingsWide(preparedFixture(t))
	counts := BuildNoticeStateCounts(wide)
	require.Equal(t, 2, counts.Len())

	// Latest periods: firm 100 files CA+NY, firm 200 files NY.
	assert.Equal(t, "NY", counts.Get(0, "State"))
	assert.Equal(t, int64(2), counts.Get(0, "Firm Count"))
	assert.Equal(t, "CA", counts.Get(1, "State"))
	assert.Equal(t, int64(1), counts.Get(1, "Firm Count"))
}

func TestBuildNoticeStateCountsEmpty(t *testing.T) {
	counts := BuildNoticeStateCounts(table.New("CRD Number", "Report Date", "Filing ID", "States Filed", "States Count"))
	assert.Equal(t, 0, counts.Len())
	assert.Equal(t, []string{"State", "Firm Count"}, counts.Columns)
}

func TestGoldBuildersEmptyInput(t *testing.T) {
	ps := &PreparedSet{Columns: []string{ColumnCRD, ColumnReportDate, "2_CA"}, Rows: []PreparedRow{}}

	assert.Equal(t, 0, BuildFirmMaster(ps).Len())
	assert.Equal(t, 0, BuildFirmTimeseries(ps).Len())
	wide := BuildNoticeFilingsWide(ps)
	assert.Equal(t, 0, wide.Len())
	// Declared state columns survive even with zero rows.
	assert.Contains(t, wide.Columns, "CA")
	assert.Equal(t, 0, BuildNoticeFilingsLong(ps).Len())
}
