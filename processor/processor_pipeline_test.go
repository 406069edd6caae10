package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riaintel/advflow/pkg/table"
)

type captureSink struct {
	messages []Message
	failOn   string
}

func (c *captureSink) Subscribe(Processor) {}

func (c *captureSink) Process(ctx context.Context, msg Message) error {
	if gt, ok := msg.Payload.(GoldTable); ok && gt.Name == c.failOn {
		return fmt.Errorf("sink refused %s", gt.Name)
	}
	c.messages = append(c.messages, msg)
	return nil
}

func TestMergeFilingsStampsPeriod(t *testing.T) {
	m, err := NewMergeFilings(map[string]interface{}{})
	require.NoError(t, err)
	sink := &captureSink{}
	m.Subscribe(sink)

	msg := Message{Payload: PeriodFilings{Period: "20230101", BaseA: sideA(), BaseB: sideB()}}
	require.NoError(t, m.Process(context.Background(), msg))

	require.Len(t, sink.messages, 1)
	merged, ok := sink.messages[0].Payload.(*table.Table)
	require.True(t, ok)
	require.Equal(t, 2, merged.Len())
	assert.Equal(t, "20230101", merged.Get(0, ColumnReportDate))
	assert.Equal(t, "20230101", merged.Get(1, ColumnReportDate))

	period, ok := sink.messages[0].Period()
	require.True(t, ok)
	assert.Equal(t, "20230101", period)
}

func TestMergeFilingsPropagatesMergeFailure(t *testing.T) {
	m, err := NewMergeFilings(map[string]interface{}{})
	require.NoError(t, err)

	short := sideB()
	short.Rows = short.Rows[:1]
	msg := Message{Payload: PeriodFilings{Period: "20230101", BaseA: sideA(), BaseB: short}}

	err = m.Process(context.Background(), msg)
	var merr *MergeIntegrityError
	require.ErrorAs(t, err, &merr)
}

func TestPrepareKeysProcessor(t *testing.T) {
	p, err := NewPrepareKeysProcessor(map[string]interface{}{})
	require.NoError(t, err)
	sink := &captureSink{}
	p.Subscribe(sink)

	require.NoError(t, p.Process(context.Background(), Message{Payload: silverFixture()}))

	require.Len(t, sink.messages, 1)
	ps, ok := sink.messages[0].Payload.(*PreparedSet)
	require.True(t, ok)
	assert.Len(t, ps.Rows, 4)
}

func TestGoldBuilderEmitsAllTables(t *testing.T) {
	g, err := NewGoldBuilder(map[string]interface{}{})
	require.NoError(t, err)
	sink := &captureSink{}
	g.Subscribe(sink)

	require.NoError(t, g.Process(context.Background(), Message{Payload: preparedFixture(t)}))

	var names []string
	for _, m := range sink.messages {
		names = append(names, m.Payload.(GoldTable).Name)
	}
	assert.Equal(t, []string{
		TableFirmMaster, TableFirmTimeseries, TableNoticeWide,
		TableNoticeLong, TableFirmsLatest, TableNoticeStateCounts,
	}, names)
}

func TestGoldBuilderIsolatesTableFailures(t *testing.T) {
	g, err := NewGoldBuilder(map[string]interface{}{})
	require.NoError(t, err)
	sink := &captureSink{failOn: TableNoticeWide}
	g.Subscribe(sink)

	err = g.Process(context.Background(), Message{Payload: preparedFixture(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), TableNoticeWide)

	// Siblings still delivered.
	require.Len(t, sink.messages, 5)
	for _, m := range sink.messages {
		assert.NotEqual(t, TableNoticeWide, m.Payload.(GoldTable).Name)
	}
}

func writeSchemaDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	doc := `tables:
  firm_master:
    columns:
      - {name: "CRD Number", type: int, required: true}
      - {name: "Custody", type: bool, required: false}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func TestEnforceSchemasStrictRejectsUndeclaredTable(t *testing.T) {
	e, err := NewEnforceSchemas(map[string]interface{}{"schema_path": writeSchemaDoc(t)})
	require.NoError(t, err)
	sink := &captureSink{}
	e.Subscribe(sink)

	gt := GoldTable{Name: TableNoticeWide, Table: table.New("CRD Number")}
	err = e.Process(context.Background(), Message{Payload: gt})
	require.Error(t, err)
	assert.Contains(t, err.Error(), TableNoticeWide)
	assert.Empty(t, sink.messages)
}

func TestEnforceSchemasNonStrictPassesUndeclaredThrough(t *testing.T) {
	e, err := NewEnforceSchemas(map[string]interface{}{
		"schema_path": writeSchemaDoc(t),
		"strict":      false,
	})
	require.NoError(t, err)
	sink := &captureSink{}
	e.Subscribe(sink)

	in := table.New("CRD Number", "CA")
	in.Append(map[string]interface{}{"CRD Number": int64(100), "CA": true})
	gt := GoldTable{Name: TableNoticeWide, Table: in}
	require.NoError(t, e.Process(context.Background(), Message{Payload: gt}))

	require.Len(t, sink.messages, 1)
	out := sink.messages[0].Payload.(GoldTable)
	assert.Equal(t, TableNoticeWide, out.Name)
	assert.Equal(t, in.Columns, out.Table.Columns)
	assert.Equal(t, true, out.Table.Get(0, "CA"))
}

func TestEnforceSchemasAppliesDeclaredSchema(t *testing.T) {
	e, err := NewEnforceSchemas(map[string]interface{}{"schema_path": writeSchemaDoc(t)})
	require.NoError(t, err)
	sink := &captureSink{}
	e.Subscribe(sink)

	in := table.New("Extra", "Custody", "CRD Number")
	in.Append(map[string]interface{}{"Extra": "x", "Custody": "Y", "CRD Number": "100"})
	gt := GoldTable{Name: TableFirmMaster, Table: in}
	require.NoError(t, e.Process(context.Background(), Message{Payload: gt}))

	require.Len(t, sink.messages, 1)
	out := sink.messages[0].Payload.(GoldTable)
	assert.Equal(t, []string{"CRD Number", "Custody"}, out.Table.Columns)
	assert.Equal(t, int64(100), out.Table.Get(0, "CRD Number"))
	assert.Equal(t, true, out.Table.Get(0, "Custody"))

	// Violations of a declared schema are fatal.
	bad := table.New("CRD Number", "Custody")
	bad.Append(map[string]interface{}{"CRD Number": "abc", "Custody": "Y"})
	err = e.Process(context.Background(), Message{Payload: GoldTable{Name: TableFirmMaster, Table: bad}})
	var serr *SchemaViolationError
	require.ErrorAs(t, err, &serr)
}

func TestEnforceSchemasRequiresSchemaPath(t *testing.T) {
	_, err := NewEnforceSchemas(map[string]interface{}{})
	assert.Error(t, err)
}
