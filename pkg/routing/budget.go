package routing

import "context"

// ctxCheckInterval is how many expansions pass between context checks.
const ctxCheckInterval = 256

// budget counts expansions shared by every sub-search of one enumeration.
type budget struct {
	ctx   context.Context
	limit int // zero is unbounded
	used  int
}

func newBudget(ctx context.Context, limit int) *budget {
	return &budget{ctx: ctx, limit: limit}
}

// step records one expansion.
func (b *budget) step() error {
	b.used++
	if b.limit > 0 && b.used > b.limit {
		return errBudgetExhausted
	}
	if b.used%ctxCheckInterval == 0 {
		return b.ctx.Err()
	}
	return nil
}
