package api

import (
	"errors"
	"net/http"

	"github.com/xraph/depot"
)

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
	// Set for insufficient stock.
	Requested *int `json:"requested,omitempty"`
	Available *int `json:"available,omitempty"`
}

// writeError maps an engine error onto a status code and JSON body.
func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	writeJSON(w, status, map[string]errorBody{"error": body})
}

func classify(err error) (int, errorBody) {
	body := errorBody{Message: err.Error()}

	var (
		ve  *depot.ValidationError
		le  *depot.LockedError
		ise *depot.InsufficientStockError
		nse *depot.NoStockError
	)
	switch {
	case errors.Is(err, depot.ErrMissingOwner):
		body.Type = "missing_owner"
		return http.StatusUnauthorized, body
	case errors.Is(err, depot.ErrForbidden):
		body.Type = "forbidden"
		return http.StatusForbidden, body
	case errors.As(err, &le):
		body.Type = "locked"
		return http.StatusLocked, body
	case errors.As(err, &ise):
		body.Type = "insufficient_stock"
		body.Requested = &ise.Requested
		body.Available = &ise.Available
		return http.StatusConflict, body
	case errors.As(err, &nse):
		body.Type = "no_stock"
		return http.StatusConflict, body
	case errors.As(err, &ve):
		body.Type = "validation"
		body.Field = ve.Field
		body.Message = ve.Message
		return http.StatusUnprocessableEntity, body
	case depot.IsNotFound(err):
		body.Type = "not_found"
		return http.StatusNotFound, body
	case depot.IsConflict(err):
		body.Type = "conflict"
		return http.StatusConflict, body
	}
	body.Type = "internal"
	return http.StatusInternalServerError, body
}
