package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
	"github.com/dd0wney/cluso-corridors/pkg/routing"
	"github.com/dd0wney/cluso-corridors/pkg/validation"
)

// maxCorridorList caps GET /corridors.
const maxCorridorList = 1000

func (s *Server) currentGraph(w http.ResponseWriter, r *http.Request) (*corridor.Graph, bool) {
	g := s.engine.Graph()
	if g == nil {
		s.respondRoutingError(w, r, routing.ErrGraphUnavailable, "graph")
		return nil, false
	}
	return g, true
}

func (s *Server) reloads() uint64 {
	if s.store == nil {
		return 0
	}
	return s.store.Reloads()
}

// handleGraph reports the loaded graph. It answers 200 with status "empty"
// before the first load so dashboards can poll it.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g := s.engine.Graph()
	if g == nil {
		s.respondJSON(w, http.StatusOK, GraphResponse{Status: "empty", Reloads: s.reloads()})
		return
	}
	stats := g.Stats()
	resp := GraphResponse{
		Status:  "loaded",
		Nodes:   stats.Nodes,
		Edges:   stats.Edges,
		Source:  stats.Source,
		Reloads: s.reloads(),
	}
	if !stats.BuiltAt.IsZero() {
		builtAt := stats.BuiltAt.UTC()
		resp.BuiltAt = &builtAt
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	g, ok := s.currentGraph(w, r)
	if !ok {
		return
	}
	nodes := g.Nodes()
	s.respondJSON(w, http.StatusOK, NodesResponse{Nodes: nodes, Count: len(nodes)})
}

// handleCorridor answers GET /corridors/{from}/{to} with the resolved edge.
func (s *Server) handleCorridor(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	from, to := vars["from"], vars["to"]
	for _, code := range []string{from, to} {
		if err := validation.ValidateNodeCode(code); err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeInvalidArgument, err.Error())
			return
		}
	}

	g, ok := s.currentGraph(w, r)
	if !ok {
		return
	}
	b, err := routing.BreakdownPath(g, routing.Path{from, to})
	if errors.Is(err, routing.ErrEdgeNotFound) {
		s.respondError(w, r, http.StatusNotFound, codeNotFound, err.Error())
		return
	}
	if err != nil {
		s.respondRoutingError(w, r, err, "corridor lookup")
		return
	}
	s.respondJSON(w, http.StatusOK, b.Edges[0])
}

// handleCorridors answers GET /corridors[?from=X][&limit=N].
func (s *Server) handleCorridors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := q.Get("from")
	if from != "" {
		if err := validation.ValidateNodeCode(from); err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeInvalidArgument, err.Error())
			return
		}
	}
	limit := maxCorridorList
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxCorridorList {
			s.respondError(w, r, http.StatusBadRequest, codeInvalidArgument,
				fmt.Sprintf("limit: must be an integer in 1..%d", maxCorridorList))
			return
		}
		limit = n
	}

	g, ok := s.currentGraph(w, r)
	if !ok {
		return
	}
	out := make([]routing.EdgeBreakdown, 0)
	for _, c := range g.Corridors() {
		if len(out) == limit {
			break
		}
		if from != "" && c.From != from {
			continue
		}
		b, err := routing.BreakdownPath(g, routing.Path{c.From, c.To})
		if err != nil {
			s.respondRoutingError(w, r, err, "corridor listing")
			return
		}
		out = append(out, b.Edges[0])
	}
	s.respondJSON(w, http.StatusOK, CorridorsResponse{Corridors: out, Count: len(out)})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, VersionResponse{
		Version: s.opts.Version,
		Uptime:  time.Since(s.startTime).Seconds(),
	})
}
