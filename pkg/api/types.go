package api

import (
	"time"

	"github.com/dd0wney/cluso-corridors/pkg/audit"
	"github.com/dd0wney/cluso-corridors/pkg/routing"
)

// GraphResponse is the body of GET /graph.
type GraphResponse struct {
	Status  string     `json:"status"`
	Nodes   int        `json:"nodes"`
	Edges   int        `json:"edges"`
	BuiltAt *time.Time `json:"built_at,omitempty"`
	Source  string     `json:"source,omitempty"`
	Reloads uint64     `json:"reloads"`
}

// NodesResponse is the body of GET /nodes.
type NodesResponse struct {
	Nodes []string `json:"nodes"`
	Count int      `json:"count"`
}

// CorridorsResponse is the body of GET /corridors.
type CorridorsResponse struct {
	Corridors []routing.EdgeBreakdown `json:"corridors"`
	Count     int                     `json:"count"`
}

// ReloadResponse is the body of POST /admin/reload-graph.
type ReloadResponse struct {
	Status  string `json:"status"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	Reloads uint64 `json:"reloads"`
}

// PredictEdgeRequest is the body of POST /predict-edge.
type PredictEdgeRequest struct {
	SourceCountry      string             `json:"source_country"`
	DestinationCountry string             `json:"destination_country"`
	Features           map[string]float64 `json:"features"`
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	Version string  `json:"version"`
	Uptime  float64 `json:"uptime_seconds"`
}

// AuditResponse is the body of GET /admin/audit.
type AuditResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
	Total  int64         `json:"total"`
}
