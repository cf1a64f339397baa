// Package graphql exposes the corridor graph and the routing engine over a
// read-only GraphQL schema.
package graphql

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
	"github.com/dd0wney/cluso-corridors/pkg/routing"
	"github.com/dd0wney/cluso-corridors/pkg/validation"
)

// Resolver holds what the schema's resolvers read from.
type Resolver struct {
	engine *routing.Engine
	limits validation.Limits
	lists  LimitConfig
}

// NewResolver creates a resolver over engine.
func NewResolver(engine *routing.Engine, limits validation.Limits, lists LimitConfig) (*Resolver, error) {
	if err := ValidateLimitConfig(&lists); err != nil {
		return nil, err
	}
	return &Resolver{engine: engine, limits: limits, lists: lists}, nil
}

type metaEntry struct {
	key   string
	value float64
}

func sortedMeta(m map[string]float64) []metaEntry {
	out := make([]metaEntry, 0, len(m))
	for k, v := range m {
		out = append(out, metaEntry{k, v})
	}
	slices.SortFunc(out, func(a, b metaEntry) int { return cmp.Compare(a.key, b.key) })
	return out
}

// fieldOf builds a field whose resolver reads from a typed source.
func fieldOf[T any](t graphql.Output, get func(T) any) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			src, ok := p.Source.(T)
			if !ok {
				return nil, nil
			}
			return get(src), nil
		},
	}
}

var (
	nonNullString = graphql.NewNonNull(graphql.String)
	nonNullInt    = graphql.NewNonNull(graphql.Int)
	nonNullFloat  = graphql.NewNonNull(graphql.Float)
	nonNullBool   = graphql.NewNonNull(graphql.Boolean)
)

func newTypes() (graphStats, corridorType, routeResult *graphql.Object, weightsInput *graphql.InputObject) {
	graphStats = graphql.NewObject(graphql.ObjectConfig{
		Name: "GraphStats",
		Fields: graphql.Fields{
			"nodes":   fieldOf(nonNullInt, func(s corridor.Stats) any { return s.Nodes }),
			"edges":   fieldOf(nonNullInt, func(s corridor.Stats) any { return s.Edges }),
			"builtAt": fieldOf(nonNullString, func(s corridor.Stats) any { return s.BuiltAt.UTC().Format(time.RFC3339) }),
			"source":  fieldOf(graphql.String, func(s corridor.Stats) any { return s.Source }),
		},
	})

	meta := graphql.NewObject(graphql.ObjectConfig{
		Name: "MetaEntry",
		Fields: graphql.Fields{
			"key":   fieldOf(nonNullString, func(m metaEntry) any { return m.key }),
			"value": fieldOf(nonNullFloat, func(m metaEntry) any { return m.value }),
		},
	})

	corridorType = graphql.NewObject(graphql.ObjectConfig{
		Name:        "Corridor",
		Description: "A directed corridor with its resolved metrics",
		Fields: graphql.Fields{
			"from":               fieldOf(nonNullString, func(e routing.EdgeBreakdown) any { return e.From }),
			"to":                 fieldOf(nonNullString, func(e routing.EdgeBreakdown) any { return e.To }),
			"friction":           fieldOf(nonNullFloat, func(e routing.EdgeBreakdown) any { return e.Friction }),
			"totalCostPct":       fieldOf(nonNullFloat, func(e routing.EdgeBreakdown) any { return e.TotalCostPct }),
			"settlementTimeDays": fieldOf(nonNullFloat, func(e routing.EdgeBreakdown) any { return e.SettlementTimeDays }),
			"frictionSource":     fieldOf(nonNullString, func(e routing.EdgeBreakdown) any { return e.FrictionSource }),
			"fxSpreadBps":        fieldOf(nonNullFloat, func(e routing.EdgeBreakdown) any { return e.FXSpreadBps }),
			"transferFeePercent": fieldOf(nonNullFloat, func(e routing.EdgeBreakdown) any { return e.TransferFeePercent }),
			"taxRatePercent":     fieldOf(nonNullFloat, func(e routing.EdgeBreakdown) any { return e.TaxRatePercent }),
			"meta": fieldOf(graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(meta))),
				func(e routing.EdgeBreakdown) any { return sortedMeta(e.Meta) }),
		},
	})

	weights := graphql.NewObject(graphql.ObjectConfig{
		Name: "Weights",
		Fields: graphql.Fields{
			"cost": fieldOf(nonNullFloat, func(w routing.Weights) any { return w.Cost }),
			"time": fieldOf(nonNullFloat, func(w routing.Weights) any { return w.Time }),
			"risk": fieldOf(nonNullFloat, func(w routing.Weights) any { return w.Risk }),
		},
	})

	route := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"path":           fieldOf(graphql.NewNonNull(graphql.NewList(nonNullString)), func(r routing.Route) any { return r.Path }),
			"hops":           fieldOf(nonNullInt, func(r routing.Route) any { return r.Hops }),
			"totalCost":      fieldOf(nonNullFloat, func(r routing.Route) any { return r.TotalCost }),
			"totalTime":      fieldOf(nonNullFloat, func(r routing.Route) any { return r.TotalTime }),
			"totalRisk":      fieldOf(nonNullFloat, func(r routing.Route) any { return r.TotalRisk }),
			"compositeScore": fieldOf(nonNullFloat, func(r routing.Route) any { return r.CompositeScore }),
			"edges": fieldOf(graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(corridorType))),
				func(r routing.Route) any { return r.Edges }),
		},
	})

	routeResult = graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteResult",
		Fields: graphql.Fields{
			"source":         fieldOf(nonNullString, func(r routing.Response) any { return r.Source }),
			"destination":    fieldOf(nonNullString, func(r routing.Response) any { return r.Destination }),
			"k":              fieldOf(nonNullInt, func(r routing.Response) any { return r.K }),
			"maxHops":        fieldOf(nonNullInt, func(r routing.Response) any { return r.MaxHops }),
			"weights":        fieldOf(graphql.NewNonNull(weights), func(r routing.Response) any { return r.Weights }),
			"higherIsBetter": fieldOf(nonNullBool, func(r routing.Response) any { return r.HigherIsBetter }),
			"fallback":       fieldOf(nonNullBool, func(r routing.Response) any { return r.Fallback }),
			"truncated":      fieldOf(nonNullBool, func(r routing.Response) any { return r.Truncated }),
			"routes": fieldOf(graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(route))),
				func(r routing.Response) any { return r.Routes }),
		},
	})

	weightsInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "WeightsInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"cost": &graphql.InputObjectFieldConfig{Type: graphql.Float, DefaultValue: 0.0},
			"time": &graphql.InputObjectFieldConfig{Type: graphql.Float, DefaultValue: 0.0},
			"risk": &graphql.InputObjectFieldConfig{Type: graphql.Float, DefaultValue: 0.0},
		},
	})
	return graphStats, corridorType, routeResult, weightsInput
}

// Schema builds the read-only query schema.
func (r *Resolver) Schema() (graphql.Schema, error) {
	graphStats, corridorType, routeResult, weightsInput := newTypes()

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: nonNullString,
				Resolve: func(graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"graph": &graphql.Field{
				Type:    graphql.NewNonNull(graphStats),
				Resolve: r.resolveGraph,
			},
			"nodes": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(nonNullString)),
				Resolve: r.resolveNodes,
			},
			"corridor": &graphql.Field{
				Type: corridorType,
				Args: graphql.FieldConfigArgument{
					"from": &graphql.ArgumentConfig{Type: nonNullString},
					"to":   &graphql.ArgumentConfig{Type: nonNullString},
				},
				Resolve: r.resolveCorridor,
			},
			"corridors": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(corridorType))),
				Args: graphql.FieldConfigArgument{
					"from":  &graphql.ArgumentConfig{Type: graphql.String},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: -1},
				},
				Resolve: r.resolveCorridors,
			},
			"routes": &graphql.Field{
				Type: graphql.NewNonNull(routeResult),
				Args: graphql.FieldConfigArgument{
					"source":         &graphql.ArgumentConfig{Type: nonNullString},
					"destination":    &graphql.ArgumentConfig{Type: nonNullString},
					"k":              &graphql.ArgumentConfig{Type: graphql.Int},
					"maxHops":        &graphql.ArgumentConfig{Type: graphql.Int},
					"weights":        &graphql.ArgumentConfig{Type: weightsInput},
					"higherIsBetter": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: r.resolveRoutes,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

func (r *Resolver) graph() (*corridor.Graph, error) {
	g := r.engine.Graph()
	if g == nil {
		return nil, wrapError(routing.ErrGraphUnavailable)
	}
	return g, nil
}

func (r *Resolver) resolveGraph(graphql.ResolveParams) (any, error) {
	g, err := r.graph()
	if err != nil {
		return nil, err
	}
	return g.Stats(), nil
}

func (r *Resolver) resolveNodes(graphql.ResolveParams) (any, error) {
	g, err := r.graph()
	if err != nil {
		return nil, err
	}
	return g.Nodes(), nil
}

func (r *Resolver) resolveCorridor(p graphql.ResolveParams) (any, error) {
	from, _ := p.Args["from"].(string)
	to, _ := p.Args["to"].(string)
	for _, code := range []string{from, to} {
		if err := validation.ValidateNodeCode(code); err != nil {
			return nil, invalidArgument(err)
		}
	}

	g, err := r.graph()
	if err != nil {
		return nil, err
	}
	b, err := routing.BreakdownPath(g, routing.Path{from, to})
	if errors.Is(err, routing.ErrEdgeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError(err)
	}
	return b.Edges[0], nil
}

func (r *Resolver) resolveCorridors(p graphql.ResolveParams) (any, error) {
	g, err := r.graph()
	if err != nil {
		return nil, err
	}
	from, hasFrom := p.Args["from"].(string)
	if hasFrom {
		if err := validation.ValidateNodeCode(from); err != nil {
			return nil, invalidArgument(err)
		}
	}
	limit, _ := p.Args["limit"].(int)
	limit = applyLimit(limit, &r.lists)

	out := make([]routing.EdgeBreakdown, 0)
	for _, c := range g.Corridors() {
		if len(out) >= limit {
			break
		}
		if hasFrom && c.From != from {
			continue
		}
		b, err := routing.BreakdownPath(g, routing.Path{c.From, c.To})
		if err != nil {
			return nil, wrapError(err)
		}
		out = append(out, b.Edges[0])
	}
	return out, nil
}

func (r *Resolver) resolveRoutes(p graphql.ResolveParams) (any, error) {
	req := validation.RouteRequest{}
	req.Source, _ = p.Args["source"].(string)
	req.Destination, _ = p.Args["destination"].(string)
	req.HigherIsBetter, _ = p.Args["higherIsBetter"].(bool)
	if k, ok := p.Args["k"].(int); ok {
		req.K = &k
	}
	if hops, ok := p.Args["maxHops"].(int); ok {
		req.MaxHops = &hops
	}
	if w, ok := p.Args["weights"].(map[string]any); ok {
		req.Weights = &validation.WeightsRequest{
			Cost: toFloat(w["cost"]),
			Time: toFloat(w["time"]),
			Risk: toFloat(w["risk"]),
		}
	}
	if err := validation.ValidateRouteRequest(&req, r.limits); err != nil {
		return nil, invalidArgument(err)
	}

	resp, err := r.engine.Route(p.Context, req.ToRouting())
	if err != nil {
		return nil, wrapError(err)
	}
	return resp, nil
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	}
	return 0
}
