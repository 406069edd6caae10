package consumer

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/riaintel/advflow/pkg/table"
	"github.com/riaintel/advflow/processor"
)

// SaveToDuckDB loads every gold table into a DuckDB analytics database,
// replacing table contents wholesale on each run.
type SaveToDuckDB struct {
	db         *sql.DB
	processors []processor.Processor
}

func NewSaveToDuckDB(config map[string]interface{}) (*SaveToDuckDB, error) {
	dbPath, ok := config["db_path"].(string)
	if !ok || dbPath == "" {
		dbPath = "advflow_gold.duckdb"
	}

	db, err := sql.Open("duckdb", dbPath+"?access_mode=READ_WRITE")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DuckDB: %w", err)
	}

	log.Printf("SaveToDuckDB: opened %s", dbPath)
	return &SaveToDuckDB{db: db}, nil
}

func (d *SaveToDuckDB) Subscribe(p processor.Processor) {
	d.processors = append(d.processors, p)
}

func (d *SaveToDuckDB) Process(ctx context.Context, msg processor.Message) error {
	gt, ok := msg.Payload.(processor.GoldTable)
	if !ok {
		return fmt.Errorf("expected GoldTable payload, got %T", msg.Payload)
	}
	if err := replaceTable(ctx, d.db, gt, sqlDialectDuckDB); err != nil {
		return err
	}
	log.Printf("SaveToDuckDB: replaced table %s (%d rows)", gt.Name, gt.Table.Len())

	for _, p := range d.processors {
		if err := p.Process(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (d *SaveToDuckDB) Close() error {
	return d.db.Close()
}

type sqlDialect int

const (
	sqlDialectDuckDB sqlDialect = iota
	sqlDialectSQLite
)

// replaceTable drops and recreates one gold table inside a transaction.
func replaceTable(ctx context.Context, db *sql.DB, gt processor.GoldTable, dialect sqlDialect) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction for %s: %w", gt.Name, err)
	}
	defer tx.Rollback()

	name := quoteIdent(gt.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("dropping %s: %w", gt.Name, err)
	}

	cols := make([]string, len(gt.Table.Columns))
	for i, c := range gt.Table.Columns {
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(c), sqlColumnType(gt.Table, c, dialect))
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("creating %s: %w", gt.Name, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(gt.Table.Columns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", name, placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", gt.Name, err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(gt.Table.Columns))
	for _, row := range gt.Table.Rows {
		for i, c := range gt.Table.Columns {
			args[i] = sqlCell(row[c], dialect)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting into %s: %w", gt.Name, err)
		}
	}
	return tx.Commit()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlColumnType(t *table.Table, column string, dialect sqlDialect) string {
	for _, row := range t.Rows {
		switch row[column].(type) {
		case nil:
			continue
		case int64:
			return "BIGINT"
		case float64:
			return "DOUBLE"
		case bool:
			if dialect == sqlDialectSQLite {
				return "INTEGER"
			}
			return "BOOLEAN"
		case time.Time:
			if dialect == sqlDialectSQLite {
				return "TEXT"
			}
			return "TIMESTAMP"
		default:
			return "VARCHAR"
		}
	}
	return "VARCHAR"
}

func sqlCell(v interface{}, dialect sqlDialect) interface{} {
	switch c := v.(type) {
	case time.Time:
		if dialect == sqlDialectSQLite {
			return c.Format("2006-01-02 15:04:05")
		}
		return c
	case bool:
		if dialect == sqlDialectSQLite {
			if c {
				return int64(1)
			}
			return int64(0)
		}
		return c
	default:
		return v
	}
}
