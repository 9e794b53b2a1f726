package introspect

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Introspector reads table shapes from the store's information schema and
// writes one dataset spec stub per table, ready for the registry loader.
// Descriptions are left empty for the annotation pass.
type Introspector struct {
	db *sql.DB
}

func New(db *sql.DB) *Introspector {
	return &Introspector{db: db}
}

type tableRef struct {
	Schema string
	Table  string
}

type specStub struct {
	DatasetID   string       `json:"dataset_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Schema      string       `json:"schema"`
	Table       string       `json:"table"`
	PrimaryKey  []string     `json:"primary_key"`
	Columns     []columnStub `json:"columns"`
	SampleSize  *int64       `json:"sample_size"`
}

type columnStub struct {
	Name        string  `json:"name"`
	DType       string  `json:"dtype"`
	Description string  `json:"description"`
	Units       *string `json:"units"`
	Nullable    bool    `json:"nullable"`
}

// Run introspects every base table in schemas and writes
// <outputDir>/<schema>/<table>.json for each. It returns the number of
// specs written.
func (i *Introspector) Run(ctx context.Context, schemas []string, outputDir string) (int, error) {
	if len(schemas) == 0 {
		return 0, fmt.Errorf("at least one schema is required")
	}

	tables, err := i.listTables(ctx, schemas)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, table := range tables {
		columns, err := i.listColumns(ctx, table)
		if err != nil {
			return written, err
		}
		primaryKey, err := i.primaryKey(ctx, table)
		if err != nil {
			return written, err
		}

		stub := specStub{
			DatasetID:  table.Schema + "." + table.Table,
			Name:       friendlyName(table.Table),
			Schema:     table.Schema,
			Table:      table.Table,
			PrimaryKey: primaryKey,
			Columns:    columns,
		}
		if err := writeStub(outputDir, stub); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (i *Introspector) listTables(ctx context.Context, schemas []string) ([]tableRef, error) {
	query := `
SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema = ANY($1)
ORDER BY table_schema, table_name`

	rows, err := i.db.QueryContext(ctx, query, schemas)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]tableRef, 0)
	for rows.Next() {
		var table tableRef
		if err := rows.Scan(&table.Schema, &table.Table); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}
	return tables, nil
}

func (i *Introspector) listColumns(ctx context.Context, table tableRef) ([]columnStub, error) {
	query := `
SELECT column_name, data_type, udt_name, is_nullable
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

	rows, err := i.db.QueryContext(ctx, query, table.Schema, table.Table)
	if err != nil {
		return nil, fmt.Errorf("list columns for %s.%s: %w", table.Schema, table.Table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]columnStub, 0)
	for rows.Next() {
		var name, dataType, udtName, isNullable string
		if err := rows.Scan(&name, &dataType, &udtName, &isNullable); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		dtype := udtName
		if dtype == "" {
			dtype = dataType
		}
		columns = append(columns, columnStub{
			Name:     name,
			DType:    dtype,
			Nullable: isNullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}
	return columns, nil
}

func (i *Introspector) primaryKey(ctx context.Context, table tableRef) ([]string, error) {
	query := `
SELECT a.attname
FROM pg_index AS i
JOIN pg_class AS c ON c.oid = i.indrelid
JOIN pg_namespace AS n ON n.oid = c.relnamespace
JOIN pg_attribute AS a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
WHERE i.indisprimary
  AND n.nspname = $1
  AND c.relname = $2
ORDER BY array_position(i.indkey, a.attnum)`

	rows, err := i.db.QueryContext(ctx, query, table.Schema, table.Table)
	if err != nil {
		return nil, fmt.Errorf("primary key for %s.%s: %w", table.Schema, table.Table, err)
	}
	defer func() { _ = rows.Close() }()

	key := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan primary key row: %w", err)
		}
		key = append(key, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate primary key rows: %w", err)
	}
	return key, nil
}

func writeStub(outputDir string, stub specStub) error {
	dir := filepath.Join(outputDir, stub.Schema)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}
	payload, err := json.MarshalIndent(stub, "", "  ")
	if err != nil {
		return fmt.Errorf("encode spec for %s: %w", stub.DatasetID, err)
	}
	path := filepath.Join(dir, stub.Table+".json")
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write spec file %s: %w", path, err)
	}
	return nil
}

func friendlyName(table string) string {
	words := strings.Split(table, "_")
	for idx, word := range words {
		if word == "" {
			continue
		}
		words[idx] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
