package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-corridors/pkg/api/middleware"
	"github.com/dd0wney/cluso-corridors/pkg/audit"
	"github.com/dd0wney/cluso-corridors/pkg/auth"
	"github.com/dd0wney/cluso-corridors/pkg/corridor"
	"github.com/dd0wney/cluso-corridors/pkg/ingest"
	"github.com/dd0wney/cluso-corridors/pkg/logging"
	"github.com/dd0wney/cluso-corridors/pkg/validation"
)

// handleReloadGraph rebuilds the graph from its source and swaps it in. The
// previous graph keeps serving if the rebuild fails.
func (s *Server) handleReloadGraph(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, r, http.StatusServiceUnavailable, codeReloadUnconfigured, "graph reload is not configured")
		return
	}

	event := &audit.Event{
		Subject:   "anonymous",
		Action:    audit.ActionReloadGraph,
		IPAddress: s.clientIP.ClientIP(r),
		RequestID: middleware.GetRequestID(r),
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		event.Subject, event.Role = claims.Subject, claims.Role
	}
	s.logger.Info("graph reload requested",
		logging.String("subject", event.Subject),
		logging.RequestID(event.RequestID),
	)

	start := time.Now()
	err := s.store.Reload(r.Context())
	switch {
	case errors.Is(err, corridor.ErrNoBuilder):
		s.respondError(w, r, http.StatusServiceUnavailable, codeReloadUnconfigured, "graph reload is not configured")
		return
	case err != nil:
		event.Status, event.Error = audit.StatusFailure, err.Error()
		s.recordAudit(event)
		s.respondError(w, r, http.StatusBadGateway, codeReloadFailed, "graph reload failed; previous graph still serving")
		return
	}

	resp := ReloadResponse{Status: "reloaded", Reloads: s.store.Reloads()}
	if g := s.engine.Graph(); g != nil {
		resp.Nodes, resp.Edges = g.NodeCount(), g.EdgeCount()
	}
	event.Status = audit.StatusSuccess
	event.Metadata = map[string]any{
		"nodes":       resp.Nodes,
		"edges":       resp.Edges,
		"reloads":     resp.Reloads,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	s.recordAudit(event)
	s.respondJSON(w, http.StatusOK, resp)
}

// handlePredictEdge asks the predictor for the metrics of a corridor. Without
// features in the body, the known corridor's attributes are sent instead.
func (s *Server) handlePredictEdge(w http.ResponseWriter, r *http.Request) {
	if s.predictor == nil {
		s.respondError(w, r, http.StatusServiceUnavailable, codePredictorUnavail, "no edge predictor configured")
		return
	}

	var req PredictEdgeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeInvalidArgument, err.Error())
		return
	}
	req.SourceCountry = strings.TrimSpace(req.SourceCountry)
	req.DestinationCountry = strings.TrimSpace(req.DestinationCountry)
	for _, code := range []string{req.SourceCountry, req.DestinationCountry} {
		if err := validation.ValidateNodeCode(code); err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeInvalidArgument, err.Error())
			return
		}
	}

	features := req.Features
	if len(features) == 0 {
		attrs, ok := s.engine.Graph().EdgeAttributes(req.SourceCountry, req.DestinationCountry)
		if !ok {
			s.respondError(w, r, http.StatusNotFound, codeNotFound, "corridor not found and no features provided")
			return
		}
		features = attrs.Values()
	}

	pred, err := s.predictor.Predict(r.Context(), ingest.PredictRequest{
		SourceCountry:      req.SourceCountry,
		DestinationCountry: req.DestinationCountry,
		Features:           features,
	})
	if err != nil {
		if errors.Is(err, ingest.ErrPredictorUnavailable) {
			s.respondError(w, r, http.StatusServiceUnavailable, codePredictorUnavail, err.Error())
			return
		}
		s.logger.Warn("edge prediction failed",
			logging.Source(req.SourceCountry),
			logging.Destination(req.DestinationCountry),
			logging.Error(err),
		)
		s.respondError(w, r, http.StatusBadGateway, codePredictorError, "edge prediction failed")
		return
	}
	s.respondJSON(w, http.StatusOK, pred)
}

const maxAuditList = 500

// handleAudit lists recent audit events, newest first. Query parameters
// action, status and subject filter; limit caps the count.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		s.respondError(w, r, http.StatusNotFound, codeNotFound, "audit trail is not enabled")
		return
	}

	q := r.URL.Query()
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxAuditList {
			s.respondError(w, r, http.StatusBadRequest, codeInvalidArgument, "limit must be between 1 and "+strconv.Itoa(maxAuditList))
			return
		}
		limit = n
	}
	filter := audit.Filter{
		Action:  audit.Action(q.Get("action")),
		Status:  audit.Status(q.Get("status")),
		Subject: q.Get("subject"),
	}

	events := s.audit.Recent(limit, filter)
	s.respondJSON(w, http.StatusOK, AuditResponse{Events: events, Count: len(events), Total: s.audit.Total()})
}
