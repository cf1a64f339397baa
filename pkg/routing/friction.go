package routing

import "github.com/dd0wney/cluso-corridors/pkg/corridor"

// ProxyFriction estimates friction from the raw corridor inputs: basis points
// become percent, the fee is already a percent, and the tax rate is scaled
// by 1/100 onto the same unit.
func ProxyFriction(a corridor.Attributes) float64 {
	return a.FXSpreadBps/100 + a.TransferFeePercent + a.TaxRatePercent/100
}

// ResolveFriction returns the edge weight used everywhere in routing: the
// friction attribute when present, the proxy otherwise.
func ResolveFriction(a corridor.Attributes) float64 {
	if a.Friction != nil {
		return *a.Friction
	}
	return ProxyFriction(a)
}

func resolveEdge(from, to string, a corridor.Attributes) EdgeBreakdown {
	e := EdgeBreakdown{
		From:               from,
		To:                 to,
		FrictionSource:     FrictionObserved,
		FXSpreadBps:        a.FXSpreadBps,
		TransferFeePercent: a.TransferFeePercent,
		TaxRatePercent:     a.TaxRatePercent,
		Meta:               a.Meta,
	}
	if a.Friction != nil {
		e.Friction = *a.Friction
	} else {
		e.Friction = ProxyFriction(a)
		e.FrictionSource = FrictionProxy
	}
	if a.TotalCostPct != nil {
		e.TotalCostPct = *a.TotalCostPct
	} else {
		e.TotalCostPct = e.Friction
	}
	if a.SettlementTimeDays != nil {
		e.SettlementTimeDays = *a.SettlementTimeDays
	}
	return e
}
