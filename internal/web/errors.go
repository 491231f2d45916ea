package web

// errors.go maps domain errors onto HTTP status codes and a uniform JSON
// error body. Technical detail is logged server-side with the request ID;
// the client gets the user-facing message the domain error already
// carries (row, column, target, or affected collections).

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sunghokim-dev/presbytery-site/internal/backup"
	"github.com/sunghokim-dev/presbytery-site/internal/core"
	"github.com/sunghokim-dev/presbytery-site/internal/schema"
	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError logs err with request context and writes the mapped status
// and message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}

// statusFor picks the HTTP status for a domain error. Validation failures
// are client errors; mid-mutation failures are server errors so monitoring
// picks them up.
func statusFor(err error) int {
	var (
		malformed  *tabular.MalformedTableError
		missing    *schema.MissingColumnError
		concurrent *core.ConcurrentOperationError
		invalidZip *backup.InvalidArchiveError
		partialOp  *core.PartialCommitError
		partialRst *backup.PartialRestoreError
	)
	switch {
	case errors.As(err, &malformed), errors.As(err, &missing), errors.As(err, &invalidZip):
		return http.StatusBadRequest
	case errors.As(err, &concurrent):
		return http.StatusConflict
	case errors.As(err, &partialOp), errors.As(err, &partialRst):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// writeError writes a JSON error response with a fixed message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
