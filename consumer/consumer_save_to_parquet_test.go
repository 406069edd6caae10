package consumer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riaintel/advflow/pkg/table"
	"github.com/riaintel/advflow/processor"
)

func TestNewSaveToParquetValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]interface{}
		wantErr string
	}{
		{
			name:    "missing storage type",
			config:  map[string]interface{}{},
			wantErr: "storage_type is required",
		},
		{
			name:    "FS requires local path",
			config:  map[string]interface{}{"storage_type": "FS"},
			wantErr: "local_path is required",
		},
		{
			name:    "GCS requires bucket",
			config:  map[string]interface{}{"storage_type": "GCS"},
			wantErr: "bucket_name is required",
		},
		{
			name:    "S3 requires bucket",
			config:  map[string]interface{}{"storage_type": "S3"},
			wantErr: "bucket_name is required",
		},
		{
			name:    "unknown storage type",
			config:  map[string]interface{}{"storage_type": "FTP"},
			wantErr: "unsupported storage_type",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSaveToParquet(tc.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestSaveToParquetWritesGoldTable(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSaveToParquet(map[string]interface{}{
		"storage_type": "FS",
		"local_path":   dir,
		"path_prefix":  "gold",
	})
	require.NoError(t, err)

	src := table.New("CRD Number", "Firm Legal Name", "Custody")
	src.Append(map[string]interface{}{"CRD Number": int64(100), "Firm Legal Name": "Alpha", "Custody": true})
	src.Append(map[string]interface{}{"CRD Number": int64(200), "Firm Legal Name": nil, "Custody": false})

	msg := processor.Message{Payload: processor.GoldTable{Name: "firm_master", Table: src}}
	require.NoError(t, s.Process(context.Background(), msg))
	require.NoError(t, s.Close())

	path := filepath.Join(dir, "gold", "firm_master.parquet")
	got, err := ReadParquetTable(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, []string{"CRD Number", "Firm Legal Name", "Custody"}, got.Columns)
	assert.Equal(t, int64(100), got.Get(0, "CRD Number"))
	assert.Equal(t, true, got.Get(0, "Custody"))
	assert.Nil(t, got.Get(1, "Firm Legal Name"))
}

func TestSaveToParquetRejectsNonGoldPayload(t *testing.T) {
	s, err := NewSaveToParquet(map[string]interface{}{
		"storage_type": "FS",
		"local_path":   t.TempDir(),
	})
	require.NoError(t, err)

	err = s.Process(context.Background(), processor.Message{Payload: "nope"})
	assert.Error(t, err)
}

func TestLocalFSClientRejectsTraversal(t *testing.T) {
	client, err := newStorageClient("FS", t.TempDir(), "", "")
	require.NoError(t, err)

	err = client.Write(context.Background(), "../escape.parquet", []byte("x"))
	assert.Error(t, err)
}

func TestEmptyGoldTableKeepsSchema(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSaveToParquet(map[string]interface{}{
		"storage_type": "FS",
		"local_path":   dir,
	})
	require.NoError(t, err)

	empty := table.New("State", "Firm Count")
	msg := processor.Message{Payload: processor.GoldTable{Name: "notice_state_counts", Table: empty}}
	require.NoError(t, s.Process(context.Background(), msg))

	got, err := ReadParquetTable(context.Background(), filepath.Join(dir, "notice_state_counts.parquet"))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, []string{"State", "Firm Count"}, got.Columns)
}
