package registry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// specFile mirrors the JSON emitted by the offline introspection tool:
// one file per dataset under <root>/<schema>/<table>.json.
type specFile struct {
	DatasetID   string           `json:"dataset_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Schema      string           `json:"schema"`
	Table       string           `json:"table"`
	PrimaryKey  []string         `json:"primary_key"`
	Columns     []specFileColumn `json:"columns"`
	SampleSize  *int64           `json:"sample_size"`
}

type specFileColumn struct {
	Name        string  `json:"name"`
	DType       string  `json:"dtype"`
	Description string  `json:"description"`
	Units       *string `json:"units"`
	Nullable    bool    `json:"nullable"`
}

// LoadError records one spec file that failed to parse or validate. The
// offending dataset is excluded from the catalog; loading continues.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("registry spec %s: %v", e.Path, e.Err)
}

func (e LoadError) Unwrap() error {
	return e.Err
}

type LoadResult struct {
	Specs  map[string]Spec
	Errors []LoadError
}

// LoadDir walks root recursively and parses every .json file into a Spec.
// Files are visited in lexical order; when two files declare the same
// dataset_id the first occurrence wins and the duplicate is reported as a
// load error. A non-nil error is returned only when root itself cannot be
// read.
func LoadDir(root string) (LoadResult, error) {
	result := LoadResult{Specs: map[string]Spec{}}

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			result.Errors = append(result.Errors, LoadError{Path: path, Err: walkErr})
			return nil
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			return nil
		}
		spec, err := loadSpecFile(path)
		if err != nil {
			result.Errors = append(result.Errors, LoadError{Path: path, Err: err})
			return nil
		}
		if _, exists := result.Specs[spec.DatasetID]; exists {
			result.Errors = append(result.Errors, LoadError{
				Path: path,
				Err:  fmt.Errorf("duplicate dataset_id %q, keeping first occurrence", spec.DatasetID),
			})
			return nil
		}
		result.Specs[spec.DatasetID] = spec
		return nil
	})
	if err != nil {
		return LoadResult{}, fmt.Errorf("scan registry dir %s: %w", root, err)
	}
	return result, nil
}

func loadSpecFile(path string) (Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read spec file: %w", err)
	}
	var file specFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return Spec{}, fmt.Errorf("parse spec file: %w", err)
	}

	spec := Spec{
		DatasetID:   strings.TrimSpace(file.DatasetID),
		DisplayName: strings.TrimSpace(file.Name),
		Description: file.Description,
		Schema:      strings.TrimSpace(file.Schema),
		Table:       strings.TrimSpace(file.Table),
		PrimaryKey:  file.PrimaryKey,
		SampleSize:  file.SampleSize,
		Columns:     make([]Column, 0, len(file.Columns)),
	}
	for _, column := range file.Columns {
		semantic, ok := semanticTypeFor(column.DType)
		if !ok {
			return Spec{}, fmt.Errorf("column %q: unsupported dtype %q", column.Name, column.DType)
		}
		units := ""
		if column.Units != nil {
			units = *column.Units
		}
		spec.Columns = append(spec.Columns, Column{
			Name:        column.Name,
			Type:        semantic,
			Nullable:    column.Nullable,
			Description: column.Description,
			Units:       units,
		})
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// semanticTypeFor maps Postgres udt/type names from the introspection tool to
// the small semantic type set the query engine understands.
func semanticTypeFor(dtype string) (SemanticType, bool) {
	switch strings.ToLower(strings.TrimSpace(dtype)) {
	case "string", "text", "varchar", "bpchar", "char", "character varying", "character", "citext", "uuid", "name":
		return TypeString, true
	case "int", "integer", "int2", "int4", "int8", "smallint", "bigint":
		return TypeInteger, true
	case "float", "float4", "float8", "real", "double", "double precision", "numeric", "decimal":
		return TypeFloat, true
	case "bool", "boolean":
		return TypeBoolean, true
	case "date":
		return TypeDate, true
	case "timestamp", "timestamptz", "timestamp without time zone", "timestamp with time zone":
		return TypeTimestamp, true
	default:
		return "", false
	}
}
