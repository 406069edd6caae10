package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenameColumnsDoesNotMutate(t *testing.T) {
	tbl := New("CRD", "FIRM_NAME")
	tbl.Append(map[string]interface{}{"CRD": "100", "FIRM_NAME": "Acme"})

	out := tbl.RenameColumns(map[string]string{"FIRM_NAME": "Firm Legal Name"})

	assert.Equal(t, []string{"CRD", "Firm Legal Name"}, out.Columns)
	assert.Equal(t, "Acme", out.Get(0, "Firm Legal Name"))
	// original untouched
	assert.Equal(t, []string{"CRD", "FIRM_NAME"}, tbl.Columns)
	assert.Equal(t, "Acme", tbl.Get(0, "FIRM_NAME"))
}

func TestSelectUnknownColumnIsNil(t *testing.T) {
	tbl := New("A")
	tbl.Append(map[string]interface{}{"A": "x"})

	out := tbl.Select("A", "B")
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "x", out.Get(0, "A"))
	assert.Nil(t, out.Get(0, "B"))
}

func TestConcatUnionsColumnsInFirstSeenOrder(t *testing.T) {
	a := New("A", "B")
	a.Append(map[string]interface{}{"A": "1", "B": "2"})
	b := New("B", "C")
	b.Append(map[string]interface{}{"B": "3", "C": "4"})

	out := Concat(a, b)
	assert.Equal(t, []string{"A", "B", "C"}, out.Columns)
	require.Equal(t, 2, out.Len())
	assert.Nil(t, out.Get(1, "A"))
	assert.Equal(t, "4", out.Get(1, "C"))
}

func TestSetConstant(t *testing.T) {
	tbl := New("A")
	tbl.Append(map[string]interface{}{"A": "x"})
	tbl.Append(map[string]interface{}{"A": "y"})

	tbl.SetConstant("REPORT_DATE", "20230401")
	assert.Equal(t, []string{"A", "REPORT_DATE"}, tbl.Columns)
	assert.Equal(t, "20230401", tbl.Get(1, "REPORT_DATE"))
}

func TestAddColumnRejectsDuplicate(t *testing.T) {
	tbl := New("A")
	err := tbl.AddColumn("A", nil)
	assert.Error(t, err)
}
