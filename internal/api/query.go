package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/statline/statline/internal/auth"
	"github.com/statline/statline/internal/engine"
	"github.com/statline/statline/internal/observability"
	"github.com/statline/statline/internal/registry"
)

type queryRequest struct {
	Filters []engine.Filter `json:"filters"`
	Columns []string        `json:"columns"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type queryResponse struct {
	DatasetID string           `json:"dataset_id"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	Returned  int              `json:"returned"`
	Offset    int              `json:"offset"`
	HasMore   bool             `json:"has_more"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Registry == nil || deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}
	if err := requireAnyRole(r, auth.RoleReader, auth.RoleAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	datasetID := r.PathValue("dataset")
	start := time.Now()

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}

	spec, err := deps.Registry.Get(datasetID)
	if err != nil {
		observability.ObserveQuery(datasetID, "not_found", 0, time.Since(start))
		if errors.Is(err, registry.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "DATASET_NOT_FOUND", "dataset was not found", false, map[string]any{"dataset_id": datasetID})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "REGISTRY_ERROR", "failed to resolve dataset", true, nil)
		return
	}

	validated, err := engine.Validate(spec, engine.Request{
		Filters: request.Filters,
		Columns: request.Columns,
		Limit:   request.Limit,
		Offset:  request.Offset,
	}, deps.Limits)
	if err != nil {
		observability.ObserveQuery(datasetID, "invalid", 0, time.Since(start))
		writeValidationError(w, r, err)
		return
	}

	result, err := deps.Executor.Execute(r.Context(), validated)
	if err != nil {
		observability.ObserveQuery(datasetID, "store_error", 0, time.Since(start))
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "dataset query failed",
				slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
				slog.String("dataset_id", datasetID),
				slog.Any("error", err),
			)
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "STORE_ERROR", "dataset query failed", true, map[string]any{"dataset_id": datasetID})
		return
	}

	observability.ObserveQuery(datasetID, "ok", result.Returned, time.Since(start))
	writeJSON(w, http.StatusOK, queryResponse{
		DatasetID: datasetID,
		Columns:   result.Columns,
		Rows:      result.Rows,
		Returned:  result.Returned,
		Offset:    validated.Offset,
		HasMore:   result.HasMore,
	})
}

// writeValidationError maps the engine's typed validation failures onto
// client-correctable error codes. These are all detected before any store
// access.
func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var unknownColumn *engine.UnknownColumnError
	if errors.As(err, &unknownColumn) {
		writeError(r.Context(), w, http.StatusBadRequest, "UNKNOWN_COLUMN", err.Error(), false, map[string]any{"column": unknownColumn.Column})
		return
	}
	var unsupportedOp *engine.UnsupportedOperatorError
	if errors.As(err, &unsupportedOp) {
		writeError(r.Context(), w, http.StatusBadRequest, "UNSUPPORTED_OPERATOR", err.Error(), false, map[string]any{
			"column":   unsupportedOp.Column,
			"operator": string(unsupportedOp.Op),
		})
		return
	}
	var coercion *engine.TypeCoercionError
	if errors.As(err, &coercion) {
		writeError(r.Context(), w, http.StatusBadRequest, "TYPE_COERCION", err.Error(), false, map[string]any{
			"column": coercion.Column,
			"value":  coercion.Value,
		})
		return
	}
	var pagination *engine.InvalidPaginationError
	if errors.As(err, &pagination) {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PAGINATION", err.Error(), false, nil)
		return
	}
	writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), false, nil)
}
