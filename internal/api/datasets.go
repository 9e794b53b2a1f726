package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/statline/statline/internal/auth"
	"github.com/statline/statline/internal/observability"
	"github.com/statline/statline/internal/registry"
)

func handleListDatasets(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Registry == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "REGISTRY_NOT_CONFIGURED", "dataset registry is not configured", false, nil)
		return
	}
	if err := requireAnyRole(r, auth.RoleReader, auth.RoleAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	specs := deps.Registry.List()
	items := make([]map[string]any, 0, len(specs))
	for _, spec := range specs {
		items = append(items, map[string]any{
			"dataset_id":  spec.DatasetID,
			"name":        spec.DisplayName,
			"description": spec.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": items})
}

func handleDescribeDataset(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Registry == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "REGISTRY_NOT_CONFIGURED", "dataset registry is not configured", false, nil)
		return
	}
	if err := requireAnyRole(r, auth.RoleReader, auth.RoleAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	datasetID := r.PathValue("dataset")
	spec, err := deps.Registry.Get(datasetID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "DATASET_NOT_FOUND", "dataset was not found", false, map[string]any{"dataset_id": datasetID})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "REGISTRY_ERROR", "failed to resolve dataset", true, nil)
		return
	}

	writeJSON(w, http.StatusOK, describePayload(spec))
}

func describePayload(spec registry.Spec) map[string]any {
	columns := make([]map[string]any, 0, len(spec.Columns))
	for _, column := range spec.Columns {
		entry := map[string]any{
			"name":        column.Name,
			"type":        string(column.Type),
			"nullable":    column.Nullable,
			"description": column.Description,
		}
		if column.Units != "" {
			entry["units"] = column.Units
		}
		columns = append(columns, entry)
	}
	payload := map[string]any{
		"dataset_id":  spec.DatasetID,
		"name":        spec.DisplayName,
		"description": spec.Description,
		"schema":      spec.Schema,
		"table":       spec.Table,
		"primary_key": spec.PrimaryKey,
		"columns":     columns,
	}
	if spec.SampleSize != nil {
		payload["sample_size"] = *spec.SampleSize
	}
	return payload
}

func handleReloadRegistry(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.ReloadRegistry == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "RELOAD_NOT_CONFIGURED", "registry reload is not configured", false, nil)
		return
	}
	if err := requireAnyRole(r, auth.RoleAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	result, err := deps.ReloadRegistry(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "REGISTRY_RELOAD_FAILED", "failed to reload registry", true, map[string]any{"details": err.Error()})
		return
	}

	observability.SetRegistryMetrics(len(result.Specs), len(result.Errors))
	loadErrors := make([]map[string]any, 0, len(result.Errors))
	for _, loadErr := range result.Errors {
		loadErrors = append(loadErrors, map[string]any{
			"path":  loadErr.Path,
			"error": loadErr.Err.Error(),
		})
		if deps.Logger != nil {
			deps.Logger.WarnContext(r.Context(), "registry spec rejected",
				slog.String("path", loadErr.Path),
				slog.Any("error", loadErr.Err),
			)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"datasets": len(result.Specs),
		"errors":   loadErrors,
	})
}
