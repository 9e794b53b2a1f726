package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/statline/statline/internal/registry"
)

// Validate type-checks a request against the dataset spec and returns a
// request the executor can trust: every column reference resolved, every
// filter value coerced, pagination normalized. Validation failures are
// detected here, before any store access.
func Validate(spec registry.Spec, request Request, limits Limits) (ValidatedRequest, error) {
	validated := ValidatedRequest{Spec: spec, Offset: request.Offset}

	if request.Limit < 0 {
		return ValidatedRequest{}, &InvalidPaginationError{Reason: fmt.Sprintf("limit %d must be positive", request.Limit)}
	}
	if request.Offset < 0 {
		return ValidatedRequest{}, &InvalidPaginationError{Reason: fmt.Sprintf("offset %d must not be negative", request.Offset)}
	}
	switch {
	case request.Limit == 0:
		validated.Limit = limits.Default
	case request.Limit > limits.Max:
		validated.Limit = limits.Max
	default:
		validated.Limit = request.Limit
	}

	if len(request.Columns) == 0 {
		validated.Columns = spec.Columns
	} else {
		validated.Columns = make([]registry.Column, 0, len(request.Columns))
		for _, name := range request.Columns {
			column, ok := spec.Column(name)
			if !ok {
				return ValidatedRequest{}, &UnknownColumnError{Column: name}
			}
			validated.Columns = append(validated.Columns, column)
		}
	}

	validated.Filters = make([]BoundFilter, 0, len(request.Filters))
	for _, filter := range request.Filters {
		column, ok := spec.Column(filter.Column)
		if !ok {
			return ValidatedRequest{}, &UnknownColumnError{Column: filter.Column}
		}
		switch filter.Op {
		case OpEq:
		case OpGte, OpLte:
			if !column.Type.Ordered() {
				return ValidatedRequest{}, &UnsupportedOperatorError{Column: column.Name, Op: filter.Op, Type: column.Type}
			}
		default:
			return ValidatedRequest{}, &UnsupportedOperatorError{Column: column.Name, Op: filter.Op, Type: column.Type}
		}
		value, err := coerceValue(column, filter.Value)
		if err != nil {
			return ValidatedRequest{}, err
		}
		validated.Filters = append(validated.Filters, BoundFilter{Column: column, Op: filter.Op, Value: value})
	}

	return validated, nil
}

// coerceValue converts a request value (typically JSON-decoded, so strings,
// float64 and bool) into the Go type matching the column's semantic type.
func coerceValue(column registry.Column, raw any) (any, error) {
	fail := func() (any, error) {
		return nil, &TypeCoercionError{Column: column.Name, Type: column.Type, Value: raw}
	}
	if raw == nil {
		return fail()
	}

	switch column.Type {
	case registry.TypeString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return fail()
	case registry.TypeInteger:
		switch v := raw.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v != math.Trunc(v) {
				return fail()
			}
			return int64(v), nil
		case string:
			parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return fail()
			}
			return parsed, nil
		}
		return fail()
	case registry.TypeFloat:
		switch v := raw.(type) {
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case float64:
			return v, nil
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fail()
			}
			return parsed, nil
		}
		return fail()
	case registry.TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fail()
			}
			return parsed, nil
		}
		return fail()
	case registry.TypeDate:
		s, ok := raw.(string)
		if !ok {
			return fail()
		}
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(s))
		if err != nil {
			return fail()
		}
		return parsed, nil
	case registry.TypeTimestamp:
		s, ok := raw.(string)
		if !ok {
			return fail()
		}
		trimmed := strings.TrimSpace(s)
		if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
			return parsed, nil
		}
		if parsed, err := time.Parse("2006-01-02", trimmed); err == nil {
			return parsed, nil
		}
		return fail()
	}
	return fail()
}
