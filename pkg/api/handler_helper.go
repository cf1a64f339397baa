package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dd0wney/cluso-corridors/pkg/api/middleware"
	"github.com/dd0wney/cluso-corridors/pkg/ingest"
	"github.com/dd0wney/cluso-corridors/pkg/logging"
	"github.com/dd0wney/cluso-corridors/pkg/routing"
)

// Error codes in the "code" member of error bodies.
const (
	codeInvalidArgument    = "INVALID_ARGUMENT"
	codeNodeNotFound       = "NODE_NOT_FOUND"
	codeNoPath             = "NO_PATH"
	codeNotFound           = "NOT_FOUND"
	codeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	codeGraphUnavailable   = "GRAPH_UNAVAILABLE"
	codeTimeout            = "TIMEOUT"
	codeUnauthorized       = "UNAUTHORIZED"
	codeForbidden          = "FORBIDDEN"
	codePredictorUnavail   = "PREDICTOR_UNAVAILABLE"
	codePredictorError     = "PREDICTOR_ERROR"
	codeReloadFailed       = "RELOAD_FAILED"
	codeReloadUnconfigured = "RELOAD_UNAVAILABLE"
	codeInternal           = "INTERNAL"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	middleware.WriteError(w, r, status, code, msg)
}

// decodeJSON reads one JSON object from the body, rejecting unknown fields
// and trailing data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

// respondRoutingError maps engine errors to statuses. Internal failures are
// logged and replaced with a generic message.
func (s *Server) respondRoutingError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	switch {
	case errors.Is(err, routing.ErrNodeNotFound):
		s.respondError(w, r, http.StatusNotFound, codeNodeNotFound, err.Error())
	case errors.Is(err, routing.ErrNoPathFound):
		s.respondError(w, r, http.StatusNotFound, codeNoPath, err.Error())
	case errors.Is(err, routing.ErrGraphUnavailable):
		s.respondError(w, r, http.StatusServiceUnavailable, codeGraphUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.respondError(w, r, http.StatusGatewayTimeout, codeTimeout, operation+" timed out")
	case errors.Is(err, ingest.ErrPredictorUnavailable):
		s.respondError(w, r, http.StatusServiceUnavailable, codePredictorUnavail, err.Error())
	default:
		s.logger.Error(operation+" failed",
			logging.Error(err),
			logging.RequestID(middleware.GetRequestID(r)),
		)
		s.respondError(w, r, http.StatusInternalServerError, codeInternal, operation+" failed")
	}
}

// withTimeout bounds the request context by the route timeout.
func (s *Server) withTimeout(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.routeTimeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}
