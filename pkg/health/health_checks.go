package health

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
)

// GraphCheck reports whether a corridor graph is loaded. A graph older than
// maxAge is degraded; maxAge <= 0 disables the age check.
func GraphCheck(current func() *corridor.Graph, maxAge time.Duration) CheckFunc {
	return func() Check {
		check := Check{Name: "graph", Details: make(map[string]any)}

		g := current()
		if g == nil {
			check.Status = StatusUnhealthy
			check.Message = "No corridor graph loaded"
			return check
		}

		stats := g.Stats()
		age := time.Since(stats.BuiltAt)
		check.Details["nodes"] = stats.Nodes
		check.Details["edges"] = stats.Edges
		check.Details["built_at"] = stats.BuiltAt
		check.Details["source"] = stats.Source

		switch {
		case stats.Edges == 0:
			check.Status = StatusDegraded
			check.Message = "Corridor graph has no edges"
		case maxAge > 0 && age > maxAge:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("Corridor graph is %s old", age.Round(time.Second))
		default:
			check.Status = StatusHealthy
			check.Message = "Corridor graph loaded"
		}
		return check
	}
}

// PredictorCheck reports the circuit breaker state of the edge predictor.
// An open breaker degrades the service; routing still works on proxy values.
func PredictorCheck(state func() string) CheckFunc {
	return func() Check {
		s := state()
		check := Check{
			Name:    "predictor",
			Details: map[string]any{"breaker": s},
		}
		switch s {
		case "closed":
			check.Status = StatusHealthy
			check.Message = "Predictor reachable"
		case "half-open":
			check.Status = StatusDegraded
			check.Message = "Predictor recovering"
		default:
			check.Status = StatusDegraded
			check.Message = "Predictor unavailable; proxy metrics in use"
		}
		return check
	}
}

// PingCheck wraps a context-aware ping, such as a database pool ping, with a
// timeout.
func PingCheck(name string, timeout time.Duration, ping func(context.Context) error) CheckFunc {
	return func() Check {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		check := Check{Name: name}
		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}
		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()
		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		if sys > 0 && float64(alloc)/float64(sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}

// CertificateCheck reports how long the serving certificate stays valid.
// Inside warnBefore of expiry it is degraded; once expired it is unhealthy.
func CertificateCheck(notAfter time.Time, warnBefore time.Duration) CheckFunc {
	return func() Check {
		left := time.Until(notAfter)
		check := Check{
			Name: "tls",
			Details: map[string]any{
				"not_after": notAfter,
			},
		}
		switch {
		case left <= 0:
			check.Status = StatusUnhealthy
			check.Message = "Certificate expired"
		case left < warnBefore:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("Certificate expires in %s", left.Round(time.Hour))
		default:
			check.Status = StatusHealthy
			check.Message = "Certificate valid"
		}
		return check
	}
}
