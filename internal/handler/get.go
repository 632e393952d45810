package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/IntelliTect/Coalesce-sub010/internal/crud"
	"github.com/IntelliTect/Coalesce-sub010/internal/security"

	"github.com/go-chi/chi/v5"
)

const getEndpoint = "get"

// GetHandler serves GET /api/{type}/get/{id}.
func (a *API) GetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	typeName := chi.URLParam(r, "type")
	binding, err := a.Catalog.Bind(typeName)
	if err != nil {
		writeJSON(ctx, w, http.StatusNotFound, crud.Failure(fmt.Sprintf("Unknown type '%s'", typeName)))
		return
	}

	declaredFor := binding.DeclaredFor()
	p := security.FromContext(ctx)
	if !security.IsReadAllowed(declaredFor, p) {
		status := http.StatusForbidden
		if !p.Authenticated {
			status = http.StatusUnauthorized
		}
		writeJSON(ctx, w, status, crud.Failure(fmt.Sprintf("You are not permitted to read %s items.", declaredFor.DisplayName())))
		return
	}

	key, err := binding.Dto.PrimaryKey().ParseKey(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(ctx, w, http.StatusBadRequest, crud.Failure(fmt.Sprintf("Invalid %s key: %v", declaredFor.DisplayName(), err)))
		return
	}

	params := crud.ParametersFromQuery(r.URL.Query())
	b, err := a.Factory.For(binding, params)
	if errors.Is(err, crud.ErrUnknownDataSource) {
		writeJSON(ctx, w, http.StatusBadRequest, crud.Failure(fmt.Sprintf("Data source '%s' not found.", params.DataSource)))
		return
	}
	if err != nil {
		a.writeError(w, r, getEndpoint, err)
		return
	}

	res, err := b.Get(ctx, a.DB, key, params)
	if err != nil {
		a.writeError(w, r, getEndpoint, err)
		return
	}
	writeResult(ctx, w, res, http.StatusNotFound)
}
