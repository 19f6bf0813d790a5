package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"po-pipeline/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; nothing useful left to tell the client.
		return
	}
}

// writeError writes an {error, details} body with the given status code.
func writeError(w http.ResponseWriter, status int, summary, details string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("error", summary).Str("details", details).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: summary, Details: details})
}

// writeServiceError maps a service error onto an HTTP status.
// summary describes the failed operation and is used for server errors.
func writeServiceError(w http.ResponseWriter, err error, summary string, logger zerolog.Logger) {
	switch {
	case errors.Is(err, model.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "purchase order not found", err.Error(), logger)
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid status transition", err.Error(), logger)
	case model.IsValidation(err):
		writeError(w, http.StatusBadRequest, "invalid request", err.Error(), logger)
	default:
		logger.Error().Err(err).Str("operation", summary).Msg("request failed")
		writeError(w, http.StatusInternalServerError, summary, "internal server error", logger)
	}
}

// decodeJSON decodes the request body into dst. An empty body is accepted
// when allowEmpty is set and leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

// pathID parses the {id} path value as a UUID.
func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

// queryPage reads limit and offset query parameters.
func queryPage(r *http.Request) (model.Page, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return model.Page{}, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return model.Page{}, err
	}
	return model.NewPage(limit, offset)
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.ErrInvalidPagination
	}
	return n, nil
}
