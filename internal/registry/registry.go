package registry

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
)

var ErrNotFound = errors.New("registry: dataset not found")

type SemanticType string

const (
	TypeString    SemanticType = "string"
	TypeInteger   SemanticType = "integer"
	TypeFloat     SemanticType = "float"
	TypeBoolean   SemanticType = "boolean"
	TypeDate      SemanticType = "date"
	TypeTimestamp SemanticType = "timestamp"
)

// Ordered reports whether gte/lte comparisons make sense for the type.
func (t SemanticType) Ordered() bool {
	switch t {
	case TypeInteger, TypeFloat, TypeDate, TypeTimestamp:
		return true
	default:
		return false
	}
}

type Column struct {
	Name        string
	Type        SemanticType
	Nullable    bool
	Description string
	Units       string
}

// Spec is an immutable description of one queryable dataset. Specs are
// validated once at load time; every downstream component may assume a Spec
// it receives is well formed.
type Spec struct {
	DatasetID   string
	DisplayName string
	Description string
	Schema      string
	Table       string
	PrimaryKey  []string
	Columns     []Column
	SampleSize  *int64
}

func (s Spec) Column(name string) (Column, bool) {
	for _, column := range s.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return Column{}, false
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate rejects malformed specs at load time so query-time code never has
// to re-check schema shape or identifier safety.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.DatasetID) == "" {
		return fmt.Errorf("dataset_id is required")
	}
	if !identifierPattern.MatchString(s.Schema) {
		return fmt.Errorf("dataset %s: invalid schema identifier %q", s.DatasetID, s.Schema)
	}
	if !identifierPattern.MatchString(s.Table) {
		return fmt.Errorf("dataset %s: invalid table identifier %q", s.DatasetID, s.Table)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("dataset %s: at least one column is required", s.DatasetID)
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, column := range s.Columns {
		if !identifierPattern.MatchString(column.Name) {
			return fmt.Errorf("dataset %s: invalid column identifier %q", s.DatasetID, column.Name)
		}
		if _, dup := seen[column.Name]; dup {
			return fmt.Errorf("dataset %s: duplicate column %q", s.DatasetID, column.Name)
		}
		seen[column.Name] = struct{}{}
		switch column.Type {
		case TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeDate, TypeTimestamp:
		default:
			return fmt.Errorf("dataset %s: column %q has unknown type %q", s.DatasetID, column.Name, column.Type)
		}
	}
	for _, key := range s.PrimaryKey {
		if _, ok := seen[key]; !ok {
			return fmt.Errorf("dataset %s: primary key column %q is not declared", s.DatasetID, key)
		}
	}
	return nil
}

type snapshot struct {
	byID map[string]Spec
	ids  []string
}

// Registry holds the loaded dataset catalog. The catalog is an immutable
// snapshot behind an atomic pointer: readers never lock, and a reload
// replaces the whole snapshot in one swap so no request can observe a
// partially populated catalog.
type Registry struct {
	current atomic.Pointer[snapshot]
}

func New() *Registry {
	r := &Registry{}
	r.current.Store(&snapshot{byID: map[string]Spec{}})
	return r
}

// Swap installs a new catalog snapshot built from specs. The input map is
// copied; callers may reuse it afterwards.
func (r *Registry) Swap(specs map[string]Spec) {
	next := &snapshot{
		byID: make(map[string]Spec, len(specs)),
		ids:  make([]string, 0, len(specs)),
	}
	for id, spec := range specs {
		next.byID[id] = spec
		next.ids = append(next.ids, id)
	}
	sort.Strings(next.ids)
	r.current.Store(next)
}

func (r *Registry) Get(datasetID string) (Spec, error) {
	spec, ok := r.current.Load().byID[datasetID]
	if !ok {
		return Spec{}, ErrNotFound
	}
	return spec, nil
}

// List returns every loaded spec ordered by dataset id.
func (r *Registry) List() []Spec {
	snap := r.current.Load()
	specs := make([]Spec, 0, len(snap.ids))
	for _, id := range snap.ids {
		specs = append(specs, snap.byID[id])
	}
	return specs
}

func (r *Registry) Len() int {
	return len(r.current.Load().ids)
}
