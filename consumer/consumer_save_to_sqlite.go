package consumer

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"github.com/riaintel/advflow/processor"
)

// SaveToSQLite mirrors the DuckDB sink into a portable single-file SQLite
// database, for consumers without a columnar engine.
type SaveToSQLite struct {
	db         *sql.DB
	processors []processor.Processor
}

func NewSaveToSQLite(config map[string]interface{}) (*SaveToSQLite, error) {
	dbPath, ok := config["db_path"].(string)
	if !ok || dbPath == "" {
		return nil, fmt.Errorf("db_path is required")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	log.Printf("SaveToSQLite: opened %s", dbPath)
	return &SaveToSQLite{db: db}, nil
}

func (s *SaveToSQLite) Subscribe(p processor.Processor) {
	s.processors = append(s.processors, p)
}

func (s *SaveToSQLite) Process(ctx context.Context, msg processor.Message) error {
	gt, ok := msg.Payload.(processor.GoldTable)
	if !ok {
		return fmt.Errorf("expected GoldTable payload, got %T", msg.Payload)
	}
	if err := replaceTable(ctx, s.db, gt, sqlDialectSQLite); err != nil {
		return err
	}
	log.Printf("SaveToSQLite: replaced table %s (%d rows)", gt.Name, gt.Table.Len())

	for _, p := range s.processors {
		if err := p.Process(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *SaveToSQLite) Close() error {
	return s.db.Close()
}
