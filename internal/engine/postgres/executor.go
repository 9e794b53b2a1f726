package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/statline/statline/internal/engine"
	"github.com/statline/statline/internal/registry"
)

// Executor runs validated requests against the relational store. It assumes
// input produced by engine.Validate and never sees raw caller values.
type Executor struct {
	db      *sql.DB
	timeout time.Duration
}

func NewExecutor(db *sql.DB, timeout time.Duration) *Executor {
	return &Executor{db: db, timeout: timeout}
}

func (e *Executor) HealthCheck(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping store db: %w", err)
	}
	return nil
}

func (e *Executor) Execute(ctx context.Context, request engine.ValidatedRequest) (engine.Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	statement, args := buildStatement(request)
	rows, err := e.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return engine.Result{}, &engine.StoreError{DatasetID: request.Spec.DatasetID, Err: err}
	}
	defer func() { _ = rows.Close() }()

	columnNames := make([]string, len(request.Columns))
	for i, column := range request.Columns {
		columnNames[i] = column.Name
	}

	fetched := make([]map[string]any, 0, request.Limit)
	for rows.Next() {
		values := make([]any, len(request.Columns))
		pointers := make([]any, len(request.Columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return engine.Result{}, &engine.StoreError{DatasetID: request.Spec.DatasetID, Err: fmt.Errorf("scan row: %w", err)}
		}
		row := make(map[string]any, len(request.Columns))
		for i, column := range request.Columns {
			converted, err := convertValue(column.Type, values[i])
			if err != nil {
				return engine.Result{}, &engine.StoreError{DatasetID: request.Spec.DatasetID, Err: fmt.Errorf("column %q: %w", column.Name, err)}
			}
			row[column.Name] = converted
		}
		fetched = append(fetched, row)
	}
	if err := rows.Err(); err != nil {
		return engine.Result{}, &engine.StoreError{DatasetID: request.Spec.DatasetID, Err: err}
	}

	// The statement fetches limit+1 rows; an extra row means more pages exist.
	hasMore := len(fetched) > request.Limit
	if hasMore {
		fetched = fetched[:request.Limit]
	}
	return engine.Result{
		Columns:  columnNames,
		Rows:     fetched,
		Returned: len(fetched),
		HasMore:  hasMore,
	}, nil
}

// buildStatement assembles the full parameterized SELECT: projection,
// AND-combined predicate, primary-key ordering for stable pagination, and
// LIMIT+1/OFFSET bound as parameters.
func buildStatement(request engine.ValidatedRequest) (string, []any) {
	projection := make([]string, len(request.Columns))
	for i, column := range request.Columns {
		projection[i] = quoteIdentifier(column.Name)
	}

	var builder strings.Builder
	builder.WriteString("SELECT ")
	builder.WriteString(strings.Join(projection, ", "))
	builder.WriteString(" FROM ")
	builder.WriteString(quoteTableRef(request.Spec))

	predicate, args := buildPredicate(request.Filters)
	if predicate != "" {
		builder.WriteString(" WHERE ")
		builder.WriteString(predicate)
	}

	builder.WriteString(" ORDER BY ")
	builder.WriteString(strings.Join(orderColumns(request.Spec), ", "))

	builder.WriteString(" LIMIT $")
	builder.WriteString(strconv.Itoa(len(args) + 1))
	builder.WriteString(" OFFSET $")
	builder.WriteString(strconv.Itoa(len(args) + 2))
	args = append(args, request.Limit+1, request.Offset)

	return builder.String(), args
}

// orderColumns yields the deterministic ordering key: the primary key when
// the spec declares one, otherwise every column in declared order.
func orderColumns(spec registry.Spec) []string {
	if len(spec.PrimaryKey) > 0 {
		ordered := make([]string, len(spec.PrimaryKey))
		for i, name := range spec.PrimaryKey {
			ordered[i] = quoteIdentifier(name) + " ASC"
		}
		return ordered
	}
	ordered := make([]string, len(spec.Columns))
	for i, column := range spec.Columns {
		ordered[i] = quoteIdentifier(column.Name) + " ASC"
	}
	return ordered
}

// convertValue maps driver values onto the column's semantic type so numeric
// columns come back as numbers regardless of how the store returns them.
func convertValue(semantic registry.SemanticType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch semantic {
	case registry.TypeString:
		switch v := value.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	case registry.TypeInteger:
		switch v := value.(type) {
		case int64:
			return v, nil
		case []byte:
			return strconv.ParseInt(string(v), 10, 64)
		case string:
			return strconv.ParseInt(v, 10, 64)
		}
	case registry.TypeFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case []byte:
			return strconv.ParseFloat(string(v), 64)
		case string:
			return strconv.ParseFloat(v, 64)
		}
	case registry.TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case []byte:
			return strconv.ParseBool(string(v))
		case string:
			return strconv.ParseBool(v)
		}
	case registry.TypeDate:
		switch v := value.(type) {
		case time.Time:
			return v.Format("2006-01-02"), nil
		case []byte:
			return string(v), nil
		case string:
			return v, nil
		}
	case registry.TypeTimestamp:
		switch v := value.(type) {
		case time.Time:
			return v.UTC(), nil
		case []byte:
			return string(v), nil
		case string:
			return v, nil
		}
	}
	return nil, fmt.Errorf("unexpected %T value for %s column", value, semantic)
}
