// README: Offer presentation, eligibility snapshot and the remaining-time derivation.
package offer

import (
	"errors"
	"time"

	"partner/internal/modules/order"
)

// Deadline is fixed per offer; an expired offer is never retried.
const Deadline = 30 * time.Second

var (
	ErrNoOffer    = errors.New("no offer available")
	ErrOfferTaken = errors.New("offer already taken by another worker")
)

// Eligibility is the input snapshot for MaybeOffer.
type Eligibility struct {
	IsOnline        bool `json:"isOnline"`
	HasCurrentOrder bool `json:"hasCurrentOrder"`
	DuesBlocked     bool `json:"duesBlocked"`
}

func (e Eligibility) Eligible() bool {
	return e.IsOnline && !e.HasCurrentOrder && !e.DuesBlocked
}

type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeAccepted Outcome = "accepted"
	OutcomeDeclined Outcome = "declined"
	OutcomeExpired  Outcome = "expired"
	OutcomeTaken    Outcome = "taken"
)

// presentation exists only between "offer surfaced" and its single resolution.
type presentation struct {
	order    order.Order
	shownAt  time.Time
	timer    Timer
	resolved bool
}

// View is what callers read about the outstanding offer.
type View struct {
	Order            order.Order `json:"order"`
	ShownAt          time.Time   `json:"shownAt"`
	ExpiresAt        time.Time   `json:"expiresAt"`
	RemainingSeconds int         `json:"remainingSeconds"`
}

// Result reports how an accept or decline call resolved.
type Result struct {
	Outcome Outcome     `json:"outcome"`
	Order   order.Order `json:"order"`
}

// Remaining is max(0, Deadline - (now - shownAt)). It is recomputed on every read.
func Remaining(shownAt, now time.Time) time.Duration {
	left := Deadline - now.Sub(shownAt)
	if left < 0 {
		return 0
	}
	return left
}

func viewOf(p *presentation, now time.Time) View {
	left := Remaining(p.shownAt, now)
	return View{
		Order:            p.order.Clone(),
		ShownAt:          p.shownAt,
		ExpiresAt:        p.shownAt.Add(Deadline),
		RemainingSeconds: int((left + time.Second - 1) / time.Second),
	}
}
