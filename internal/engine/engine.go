package engine

import (
	"context"

	"github.com/statline/statline/internal/registry"
)

type Operator string

const (
	OpEq  Operator = "eq"
	OpGte Operator = "gte"
	OpLte Operator = "lte"
)

// Filter is one column/operator/value constraint as supplied by the caller.
// All filters in a request are combined with logical AND.
type Filter struct {
	Column string   `json:"column"`
	Op     Operator `json:"op"`
	Value  any      `json:"value"`
}

// Request is an unvalidated query against one dataset.
type Request struct {
	Filters []Filter `json:"filters"`
	Columns []string `json:"columns"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// BoundFilter is a filter whose column is confirmed to exist and whose value
// has been coerced to the column's semantic type.
type BoundFilter struct {
	Column registry.Column
	Op     Operator
	Value  any
}

// ValidatedRequest is the only input the executor accepts. It is produced by
// Validate and carries fully resolved columns, so downstream code never
// re-checks the schema.
type ValidatedRequest struct {
	Spec    registry.Spec
	Filters []BoundFilter
	Columns []registry.Column
	Limit   int
	Offset  int
}

type Result struct {
	Columns  []string
	Rows     []map[string]any
	Returned int
	HasMore  bool
}

// Limits bounds pagination. Limit 0 on a request selects Default; anything
// above Max is clamped to Max.
type Limits struct {
	Default int
	Max     int
}

type Executor interface {
	Execute(ctx context.Context, request ValidatedRequest) (Result, error)
}
