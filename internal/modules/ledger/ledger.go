// README: Earnings ledger: running balance, today's counters, and bank transfers.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"partner/internal/logger"
	"partner/internal/modules/order"
	"partner/internal/modules/persistence"
	"partner/internal/types"
)

var (
	ErrInsufficientBalance = errors.New("transfer exceeds balance")
	ErrInvalidAmount       = errors.New("transfer amount must be positive")
	ErrMissingDestination  = errors.New("transfer destination required")
)

const dateLayout = "2006-01-02"

// State is a read-only view of the ledger at a point in time.
type State struct {
	Balance              types.Money            `json:"balance"`
	TotalEarningsToday   types.Money            `json:"totalEarningsToday"`
	CompletedOrdersToday int                    `json:"completedOrdersToday"`
	LastBankTransfer     *persistence.Transfer  `json:"lastBankTransfer,omitempty"`
	TransferHistory      []persistence.Transfer `json:"transferHistory"`
}

type Ledger struct {
	balance        types.Money
	totalToday     types.Money
	completedToday int
	countersDate   string
	last           *persistence.Transfer
	history        []persistence.Transfer

	store *persistence.WorkerStore
	loc   *time.Location
	log   *logger.Logger
}

func New(store *persistence.WorkerStore, loc *time.Location, log *logger.Logger) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{
		balance:    types.INR(0),
		totalToday: types.INR(0),
		store:      store,
		loc:        loc,
		log:        log,
	}
}

// Restore seeds the in-memory mirror from a loaded snapshot.
func (l *Ledger) Restore(s persistence.Snapshot) {
	l.balance = normalize(s.Balance)
	l.totalToday = normalize(s.TotalEarningsToday)
	l.completedToday = s.CompletedOrdersToday
	l.countersDate = s.CountersDate
	l.last = s.LastBankTransfer
	l.history = append([]persistence.Transfer(nil), s.TransferHistory...)
}

// Credit adds one completed order's earnings. It returns the changed slices so the caller can
// persist them together with the rest of the completion step.
func (l *Ledger) Credit(o order.Order, now time.Time) persistence.Patch {
	today := now.In(l.loc).Format(dateLayout)
	if l.countersDate != today {
		l.countersDate = today
		l.totalToday = types.INR(0)
		l.completedToday = 0
	}
	l.balance = l.balance.Add(o.PartnerEarnings)
	l.totalToday = l.totalToday.Add(o.PartnerEarnings)
	l.completedToday++
	return persistence.Patch{
		persistence.KeyBalance:              l.balance,
		persistence.KeyTotalEarningsToday:   l.totalToday,
		persistence.KeyCompletedOrdersToday: l.completedToday,
		persistence.KeyCountersDate:         l.countersDate,
	}
}

// Transfer moves amount out of the balance. The balance is untouched when the check fails.
func (l *Ledger) Transfer(ctx context.Context, amount types.Money, destination string, now time.Time) (persistence.Transfer, error) {
	if amount.Amount <= 0 {
		return persistence.Transfer{}, ErrInvalidAmount
	}
	if destination == "" {
		return persistence.Transfer{}, ErrMissingDestination
	}
	if amount.Amount > l.balance.Amount {
		return persistence.Transfer{}, ErrInsufficientBalance
	}

	tr := persistence.Transfer{
		ID:          uuid.NewString(),
		Amount:      types.Money{Amount: amount.Amount, Currency: l.balance.Currency},
		Destination: destination,
		At:          now,
	}
	l.balance = l.balance.Sub(tr.Amount)
	l.last = &tr
	l.history = append(l.history, tr)

	_ = l.store.Save(ctx, persistence.Patch{
		persistence.KeyBalance:          l.balance,
		persistence.KeyLastBankTransfer: l.last,
		persistence.KeyTransferHistory:  l.history,
	})
	l.log.Info("transfer_done", map[string]any{
		"worker_id":   l.store.WorkerID(),
		"amount":      tr.Amount.Amount,
		"destination": destination,
		"balance":     l.balance.Amount,
	})
	return tr, nil
}

func (l *Ledger) State(now time.Time) State {
	s := State{
		Balance:            l.balance,
		TotalEarningsToday: types.INR(0),
		LastBankTransfer:   l.last,
		TransferHistory:    append([]persistence.Transfer(nil), l.history...),
	}
	if l.countersDate == now.In(l.loc).Format(dateLayout) {
		s.TotalEarningsToday = l.totalToday
		s.CompletedOrdersToday = l.completedToday
	}
	return s
}

func normalize(m types.Money) types.Money {
	if m.Currency == "" {
		m.Currency = types.DefaultCurrency
	}
	return m
}
