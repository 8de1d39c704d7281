package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hongminglow/therapy-console/internal/http/respond"
	"github.com/hongminglow/therapy-console/internal/storage"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

// storeError maps storage errors onto HTTP statuses.
func storeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "record not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		respond.Error(w, http.StatusConflict, "record already exists")
	default:
		logger.Error(op+" failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, op+" failed")
	}
}
