package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/IntelliTect/Coalesce-sub010/internal/bulksave"
	"github.com/IntelliTect/Coalesce-sub010/internal/crud"
	"github.com/IntelliTect/Coalesce-sub010/internal/logger"
	"github.com/IntelliTect/Coalesce-sub010/internal/model"
)

// StatusClientClosedRequest is written when the client went away before the
// response was ready.
const StatusClientClosedRequest = 499

// API holds what the HTTP handlers need. It is built once at startup.
type API struct {
	Catalog  *model.Catalog
	Factory  *crud.Factory
	DB       *sql.DB
	BulkSave *bulksave.Service

	MaxItems       int64
	DetailedErrors bool
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write_response_failed", logger.Fields(ctx, map[string]any{
			"error": err.Error(),
		}))
	}
}

// writeResult writes an item result: 200 when it succeeded, failedStatus otherwise.
func writeResult(ctx context.Context, w http.ResponseWriter, res crud.ItemResult, failedStatus int) {
	status := http.StatusOK
	if !res.WasSuccessful {
		status = failedStatus
	}
	writeJSON(ctx, w, status, res)
}

// writeError reports an infrastructure failure. The client only sees the
// request id unless detailed errors are on.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	ctx := r.Context()
	if errors.Is(err, context.Canceled) {
		logger.Warn("request_canceled", logger.Fields(ctx, map[string]any{
			"endpoint": endpoint,
		}))
		w.WriteHeader(StatusClientClosedRequest)
		return
	}

	logger.Error("request_failed", logger.Fields(ctx, map[string]any{
		"endpoint": endpoint,
		"error":    err.Error(),
	}))
	msg := fmt.Sprintf("An error occurred while processing request %s.", logger.RequestID(ctx))
	if a.DetailedErrors {
		msg = err.Error()
	}
	writeJSON(ctx, w, http.StatusInternalServerError, crud.Failure(msg))
}

// HealthHandler reports whether the database answers.
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.DB.PingContext(r.Context()); err != nil {
		logger.Warn("health_check_failed", logger.Fields(r.Context(), map[string]any{
			"error": err.Error(),
		}))
		writeJSON(r.Context(), w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
