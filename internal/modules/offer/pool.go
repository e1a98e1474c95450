// README: Candidate pools: the source of offers and the random selection policy.
package offer

import (
	"context"
	"math/rand/v2"

	"partner/internal/modules/order"
	"partner/internal/types"
)

// Pool is a source of unowned candidate orders. Claim reports whether the caller won the candidate.
type Pool interface {
	Candidates(ctx context.Context) ([]order.Order, error)
	Claim(ctx context.Context, id types.ID) (bool, error)
}

// PickRandom returns up to n distinct candidates in random order without mutating pool.
func PickRandom(pool []order.Order, n int) []order.Order {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]order.Order, 0, n)
	for _, i := range rand.Perm(len(pool))[:n] {
		out = append(out, pool[i])
	}
	return out
}
