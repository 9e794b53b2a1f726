package engine

import (
	"fmt"

	"github.com/statline/statline/internal/registry"
)

// UnknownColumnError reports a filter or projection column that does not
// exist on the target dataset.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Column)
}

// UnsupportedOperatorError reports an operator that is not valid for the
// column's semantic type, e.g. gte on a string column.
type UnsupportedOperatorError struct {
	Column string
	Op     Operator
	Type   registry.SemanticType
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("operator %q is not supported for %s column %q", e.Op, e.Type, e.Column)
}

// TypeCoercionError reports a filter value that could not be coerced to the
// column's semantic type.
type TypeCoercionError struct {
	Column string
	Type   registry.SemanticType
	Value  any
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("value %v cannot be coerced to %s for column %q", e.Value, e.Type, e.Column)
}

type InvalidPaginationError struct {
	Reason string
}

func (e *InvalidPaginationError) Error() string {
	return fmt.Sprintf("invalid pagination: %s", e.Reason)
}

// StoreError wraps an infrastructure failure from the relational store. It
// carries the dataset id for logging but never the statement text or
// connection details.
type StoreError struct {
	DatasetID string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store query for dataset %s failed: %v", e.DatasetID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
