// README: Dues gate: unpaid platform-charge days derived from completion history.
package dues

import (
	"context"
	"time"

	"partner/internal/logger"
	"partner/internal/modules/order"
	"partner/internal/modules/persistence"
	"partner/internal/types"
)

const (
	// MaxChargeDays caps the charged days and is the blocking threshold.
	MaxChargeDays = 7
	dateLayout    = "2006-01-02"
)

type Dues struct {
	UnpaidDays int         `json:"unpaidDays"`
	TotalDue   types.Money `json:"totalDue"`
	Blocked    bool        `json:"blocked"`
}

// ComputeDues counts the distinct local completion dates strictly after the watermark date.
// An empty watermark means nothing was ever settled. It is pure and is called on every read.
func ComputeDues(history []order.Order, watermark string, loc *time.Location, perDayCharge int64) Dues {
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[string]struct{})
	for i := range history {
		done := history[i].CompletedAt
		if done == nil {
			continue
		}
		d := done.In(loc).Format(dateLayout)
		// layout is lexically ordered
		if watermark != "" && d <= watermark {
			continue
		}
		days[d] = struct{}{}
	}
	unpaid := len(days)
	return Dues{
		UnpaidDays: unpaid,
		TotalDue:   types.INR(int64(min(unpaid, MaxChargeDays)) * perDayCharge),
		Blocked:    unpaid > MaxChargeDays,
	}
}

// Gate owns the settlement watermark; SettleUpTo is its only writer.
type Gate struct {
	perDayCharge int64
	loc          *time.Location
	watermark    string

	store *persistence.WorkerStore
	log   *logger.Logger
}

func NewGate(store *persistence.WorkerStore, perDayCharge int64, loc *time.Location, log *logger.Logger) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	return &Gate{perDayCharge: perDayCharge, loc: loc, store: store, log: log}
}

func (g *Gate) Restore(s persistence.Snapshot) {
	g.watermark = s.SettlementWatermark
}

func (g *Gate) Watermark() string { return g.watermark }

func (g *Gate) Compute(history []order.Order) Dues {
	return ComputeDues(history, g.watermark, g.loc, g.perDayCharge)
}

// SettleUpTo clears every charge day up to and including the local date of t.
// The watermark never moves backwards.
func (g *Gate) SettleUpTo(ctx context.Context, t time.Time) string {
	d := t.In(g.loc).Format(dateLayout)
	if d <= g.watermark {
		return g.watermark
	}
	g.watermark = d
	_ = g.store.Save(ctx, persistence.Patch{persistence.KeySettlementWatermark: g.watermark})
	g.log.Info("dues_settled", map[string]any{"worker_id": g.store.WorkerID(), "watermark": d})
	return d
}
