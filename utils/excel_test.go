package utils

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExcelWorkbookMultiSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview.xlsx")
	w := NewExcelWorkbook(path)

	require.NoError(t, w.AddSheet("firm_master", []string{"CRD Number", "Custody"}, [][]interface{}{
		{int64(100), true},
		{int64(200), nil},
	}))
	require.NoError(t, w.AddSheet("firm_timeseries", []string{"CRD Number", "Report Date"}, [][]interface{}{
		{int64(100), time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
	}))
	require.NoError(t, w.Save())
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"firm_master", "firm_timeseries"}, f.GetSheetList())

	v, err := f.GetCellValue("firm_master", "A2")
	require.NoError(t, err)
	assert.Equal(t, "100", v)

	v, err = f.GetCellValue("firm_timeseries", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01", v)
}

func TestExcelWorkbookTruncatesLongSheetNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.xlsx")
	w := NewExcelWorkbook(path)

	long := "a_very_long_table_name_that_exceeds_the_limit"
	require.NoError(t, w.AddSheet(long, []string{"x"}, nil))
	require.NoError(t, w.Save())
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	require.Len(t, f.GetSheetList(), 1)
	assert.Len(t, f.GetSheetList()[0], 31)
}
