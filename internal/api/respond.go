package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dharsanguruparan/staffdrop/internal/importer"
	"github.com/dharsanguruparan/staffdrop/internal/logging"
	"github.com/dharsanguruparan/staffdrop/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondServiceError maps import service errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		respondError(w, http.StatusNotFound, "import job not found")
	case errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrJobBusy):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, importer.ErrEmptyUpload), errors.Is(err, importer.ErrMissingOwner):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		logging.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
