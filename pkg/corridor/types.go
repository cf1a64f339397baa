package corridor

import (
	"maps"
	"time"
)

// Attribute column names used by the corridor dataset.
const (
	AttrFriction           = "friction"
	AttrTotalCostPct       = "total_cost_pct"
	AttrSettlementTimeDays = "settlement_time_days"
	AttrFXSpreadBps        = "fx_spread_bps"
	AttrTransferFeePercent = "transfer_fee_percent"
	AttrTaxRatePercent     = "tax_rate_percent"
)

// Attributes is the fixed record carried by a corridor edge.
//
// The three predicted metrics are optional: a nil pointer means the value was
// neither observed nor predicted, and the routing core resolves it with its
// fallback rules. The proxy inputs default to zero when missing. Meta holds
// descriptive numeric fields that are passed through to callers untouched.
type Attributes struct {
	Friction           *float64 `json:"friction,omitempty"`
	TotalCostPct       *float64 `json:"total_cost_pct,omitempty"`
	SettlementTimeDays *float64 `json:"settlement_time_days,omitempty"`

	FXSpreadBps        float64 `json:"fx_spread_bps,omitempty"`
	TransferFeePercent float64 `json:"transfer_fee_percent,omitempty"`
	TaxRatePercent     float64 `json:"tax_rate_percent,omitempty"`

	Meta map[string]float64 `json:"meta,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate graph-owned data.
func (a Attributes) Clone() Attributes {
	out := a
	out.Friction = clonePtr(a.Friction)
	out.TotalCostPct = clonePtr(a.TotalCostPct)
	out.SettlementTimeDays = clonePtr(a.SettlementTimeDays)
	if a.Meta != nil {
		out.Meta = maps.Clone(a.Meta)
	}
	return out
}

// Complete reports whether all three predicted metrics are present.
func (a Attributes) Complete() bool {
	return a.Friction != nil && a.TotalCostPct != nil && a.SettlementTimeDays != nil
}

// Values flattens the record into dataset columns: Meta, the proxy inputs,
// and whichever predicted metrics are present.
func (a Attributes) Values() map[string]float64 {
	out := make(map[string]float64, len(a.Meta)+6)
	maps.Copy(out, a.Meta)
	out[AttrFXSpreadBps] = a.FXSpreadBps
	out[AttrTransferFeePercent] = a.TransferFeePercent
	out[AttrTaxRatePercent] = a.TaxRatePercent
	for col, p := range map[string]*float64{
		AttrFriction:           a.Friction,
		AttrTotalCostPct:       a.TotalCostPct,
		AttrSettlementTimeDays: a.SettlementTimeDays,
	} {
		if p != nil {
			out[col] = *p
		}
	}
	return out
}

// Float returns a pointer to v, for filling optional metrics.
func Float(v float64) *float64 {
	return &v
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Handle is the read-only view of a corridor graph consumed by the routing core.
type Handle interface {
	HasNode(n string) bool
	HasEdge(from, to string) bool
	EdgeAttributes(from, to string) (Attributes, bool)
	// Neighbors returns the successors of n in ascending order.
	Neighbors(n string) []string
}

// Stats summarizes a built graph.
type Stats struct {
	Nodes   int       `json:"nodes"`
	Edges   int       `json:"edges"`
	BuiltAt time.Time `json:"built_at"`
	Source  string    `json:"source,omitempty"`
}
