package postgres

import (
	"fmt"
	"strings"

	"github.com/statline/statline/internal/engine"
	"github.com/statline/statline/internal/registry"
)

// buildPredicate translates bound filters into one AND-combined SQL condition
// with $N placeholders. Every value is bound as a parameter; identifiers come
// only from load-time-validated specs. String equality compares both sides in
// normalized form, mirroring engine.NormalizeString on the store side.
func buildPredicate(filters []engine.BoundFilter) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}

	conditions := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, filter := range filters {
		placeholder := fmt.Sprintf("$%d", len(args)+1)
		column := quoteIdentifier(filter.Column.Name)
		switch {
		case filter.Op == engine.OpEq && filter.Column.Type == registry.TypeString:
			conditions = append(conditions, fmt.Sprintf(
				"btrim(regexp_replace(lower(%s), '[^a-z0-9]+', ' ', 'g')) = %s", column, placeholder))
			args = append(args, engine.NormalizeString(filter.Value.(string)))
		case filter.Op == engine.OpEq:
			conditions = append(conditions, fmt.Sprintf("%s = %s", column, placeholder))
			args = append(args, filter.Value)
		case filter.Op == engine.OpGte:
			conditions = append(conditions, fmt.Sprintf("%s >= %s", column, placeholder))
			args = append(args, filter.Value)
		case filter.Op == engine.OpLte:
			conditions = append(conditions, fmt.Sprintf("%s <= %s", column, placeholder))
			args = append(args, filter.Value)
		}
	}
	return strings.Join(conditions, " AND "), args
}

func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

func quoteTableRef(spec registry.Spec) string {
	return quoteIdentifier(spec.Schema) + "." + quoteIdentifier(spec.Table)
}
