package consumer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/riaintel/advflow/processor"
)

// SaveToParquetConfig defines configuration for the gold parquet sink.
type SaveToParquetConfig struct {
	StorageType string // "FS", "GCS", "S3"
	BucketName  string
	PathPrefix  string
	LocalPath   string // for FS storage
	Compression string // "snappy", "gzip", "zstd", "lz4", "none"
	Region      string // for S3
}

// SaveToParquet writes each gold table to <prefix>/<name>.parquet,
// replacing the file wholesale on every run.
type SaveToParquet struct {
	config        SaveToParquetConfig
	storageClient StorageClient
	processors    []processor.Processor
	filesWritten  int64
	rowsWritten   int64
}

func NewSaveToParquet(config map[string]interface{}) (*SaveToParquet, error) {
	var cfg SaveToParquetConfig
	if storageType, ok := config["storage_type"].(string); ok {
		cfg.StorageType = storageType
	} else {
		return nil, fmt.Errorf("storage_type is required")
	}
	if bucket, ok := config["bucket_name"].(string); ok {
		cfg.BucketName = bucket
	}
	if prefix, ok := config["path_prefix"].(string); ok {
		cfg.PathPrefix = prefix
	}
	if localPath, ok := config["local_path"].(string); ok {
		cfg.LocalPath = localPath
	}
	if compression, ok := config["compression"].(string); ok {
		cfg.Compression = compression
	} else {
		cfg.Compression = "snappy"
	}
	if region, ok := config["region"].(string); ok {
		cfg.Region = region
	}

	switch cfg.StorageType {
	case "FS":
		if cfg.LocalPath == "" {
			return nil, fmt.Errorf("local_path is required for FS storage type")
		}
	case "GCS":
		if cfg.BucketName == "" {
			return nil, fmt.Errorf("bucket_name is required for GCS storage type")
		}
	case "S3":
		if cfg.BucketName == "" {
			return nil, fmt.Errorf("bucket_name is required for S3 storage type")
		}
		if cfg.Region == "" {
			cfg.Region = "us-east-1"
		}
	default:
		return nil, fmt.Errorf("unsupported storage_type: %s", cfg.StorageType)
	}

	client, err := newStorageClient(cfg.StorageType, cfg.LocalPath, cfg.BucketName, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &SaveToParquet{
		config:        cfg,
		storageClient: NewRetryableStorageClient(client, 3),
	}, nil
}

func (s *SaveToParquet) Subscribe(p processor.Processor) {
	s.processors = append(s.processors, p)
}

func (s *SaveToParquet) Process(ctx context.Context, msg processor.Message) error {
	gt, ok := msg.Payload.(processor.GoldTable)
	if !ok {
		return fmt.Errorf("expected GoldTable payload, got %T", msg.Payload)
	}

	data, err := writeParquetBytes(gt.Table, compressionCodec(s.config.Compression))
	if err != nil {
		return fmt.Errorf("encoding %s as parquet: %w", gt.Name, err)
	}

	key := gt.Name + ".parquet"
	if s.config.PathPrefix != "" {
		key = strings.TrimSuffix(s.config.PathPrefix, "/") + "/" + key
	}
	if err := s.storageClient.Write(ctx, key, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}

	s.filesWritten++
	s.rowsWritten += int64(gt.Table.Len())
	log.Printf("SaveToParquet: wrote %s (%d rows, %d bytes)", key, gt.Table.Len(), len(data))

	for _, p := range s.processors {
		if err := p.Process(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *SaveToParquet) Close() error {
	log.Printf("SaveToParquet: closed after %d file(s), %d row(s)", s.filesWritten, s.rowsWritten)
	return s.storageClient.Close()
}
