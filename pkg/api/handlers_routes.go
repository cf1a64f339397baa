package api

import (
	"net/http"

	"github.com/dd0wney/cluso-corridors/pkg/validation"
)

// handleRoutes answers POST /routes with ranked routes.
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	var req validation.RouteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeInvalidArgument, err.Error())
		return
	}
	if err := validation.ValidateRouteRequest(&req, s.limits); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeInvalidArgument, err.Error())
		return
	}

	resp, err := s.engine.Route(r.Context(), req.ToRouting())
	if err != nil {
		s.respondRoutingError(w, r, err, "route search")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}
