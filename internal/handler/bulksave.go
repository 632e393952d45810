package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/IntelliTect/Coalesce-sub010/internal/bulksave"
	"github.com/IntelliTect/Coalesce-sub010/internal/crud"
	"github.com/IntelliTect/Coalesce-sub010/internal/logger"

	"github.com/go-chi/chi/v5"
)

const bulkSaveEndpoint = "bulkSave"

// BulkSaveHandler serves POST /api/{type}/bulkSave and POST /api/bulkSave.
// The route type, when present, selects the root item returned as object.
func (a *API) BulkSaveHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rootType := chi.URLParam(r, "type")
	if rootType != "" {
		if _, ok := a.Catalog.Lookup(rootType); !ok {
			writeJSON(ctx, w, http.StatusNotFound, crud.Failure(fmt.Sprintf("Unknown type '%s'", rootType)))
			return
		}
	}

	req, err := bulksave.DecodeRequest(r.Body, a.Catalog, a.MaxItems)
	if err != nil {
		var perr *bulksave.ParseError
		if !errors.As(err, &perr) {
			a.writeError(w, r, bulkSaveEndpoint, err)
			return
		}
		a.BulkSave.Metrics().ObserveOutcome(bulksave.OutcomeParseError)
		logger.Warn("invalid_bulk_save", logger.Fields(ctx, map[string]any{
			"endpoint": bulkSaveEndpoint,
			"error":    err.Error(),
		}))
		writeJSON(ctx, w, http.StatusBadRequest, crud.Failure(perr.Error()))
		return
	}

	logger.Debug("request", logger.Fields(ctx, map[string]any{
		"endpoint": bulkSaveEndpoint,
		"type":     rootType,
		"save":     len(req.Save),
		"delete":   len(req.Delete),
	}))

	params := crud.ParametersFromQuery(r.URL.Query())
	res, err := a.BulkSave.Execute(ctx, req, params, rootType)
	if err != nil {
		a.writeError(w, r, bulkSaveEndpoint, err)
		return
	}
	writeResult(ctx, w, res, http.StatusBadRequest)
}
