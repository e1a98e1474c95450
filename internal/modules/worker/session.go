// README: Per-worker session: the single event loop that orders every transition for one worker.
package worker

import (
	"context"
	"sync"
	"time"

	"partner/internal/logger"
	"partner/internal/modules/dues"
	"partner/internal/modules/ledger"
	"partner/internal/modules/lifecycle"
	"partner/internal/modules/notify"
	"partner/internal/modules/offer"
	"partner/internal/modules/order"
	"partner/internal/modules/persistence"
	"partner/internal/types"
)

// Session serializes all operations for one worker behind mu. The offer deadline callback takes
// the same lock, so accept-versus-timeout is decided inside one critical section.
type Session struct {
	mu     sync.Mutex
	id     types.ID
	online bool

	store   *persistence.WorkerStore
	machine *lifecycle.Machine
	ledger  *ledger.Ledger
	dues    *dues.Gate
	offers  *offer.Scheduler
	binding *notify.Binding
	clock   offer.Clock
	log     *logger.Logger
}

// State is the full read model for one worker.
type State struct {
	WorkerID     types.ID      `json:"workerId"`
	Online       bool          `json:"online"`
	MemoryOnly   bool          `json:"memoryOnly"`
	CurrentOrder *order.Order  `json:"currentOrder"`
	Offer        *offer.View   `json:"offer"`
	Ledger       ledger.State  `json:"ledger"`
	Dues         dues.Dues     `json:"dues"`
	OrderHistory []order.Order `json:"orderHistory"`
	Missing      []order.Check `json:"missingChecks"`
}

type sessionDeps struct {
	store        *persistence.WorkerStore
	pool         offer.Pool
	trigger      notify.Trigger
	clock        offer.Clock
	loc          *time.Location
	perDayCharge int64
	log          *logger.Logger
}

func newSession(id types.ID, d sessionDeps, snap persistence.Snapshot) *Session {
	s := &Session{id: id, store: d.store, clock: d.clock, log: d.log}
	s.ledger = ledger.New(d.store, d.loc, d.log)
	s.ledger.Restore(snap)
	s.dues = dues.NewGate(d.store, d.perDayCharge, d.loc, d.log)
	s.dues.Restore(snap)
	s.machine = lifecycle.NewMachine(d.store, s.ledger, d.clock.Now, d.log)
	s.machine.Restore(snap)
	s.binding = notify.Bind(d.trigger, id)
	s.offers = offer.NewScheduler(offer.SchedulerDeps{
		Lock:     &s.mu,
		Clock:    d.clock,
		Pool:     d.pool,
		Notifier: s.binding,
		Acceptor: s.machine,
		WorkerID: id,
		Log:      d.log,
	})
	return s
}

func (s *Session) ID() types.ID { return s.id }

// SetOnline toggles offer eligibility. Going offline drops an outstanding offer.
func (s *Session) SetOnline(online bool, deviceToken string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if deviceToken != "" {
		s.binding.SetDeviceToken(deviceToken)
	}
	if s.online != online {
		s.log.Info("worker_online", map[string]any{"worker_id": s.id, "online": online})
	}
	s.online = online
	if !online {
		s.offers.Decline()
	}
	return s.stateLocked()
}

func (s *Session) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) Eligibility() offer.Eligibility {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eligibilityLocked()
}

func (s *Session) Offer() (offer.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers.Current()
}

// MaybeOffer surfaces a candidate if the worker is online, idle and not dues-blocked.
func (s *Session) MaybeOffer(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers.MaybeOffer(ctx, s.eligibilityLocked())
}

func (s *Session) AcceptOffer(ctx context.Context) (offer.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers.Accept(ctx)
}

func (s *Session) DeclineOffer() offer.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers.Decline()
}

func (s *Session) Advance(ctx context.Context, expected, next order.Status) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Advance(ctx, expected, next)
}

func (s *Session) RecordCheck(ctx context.Context, c order.Check, v bool) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.RecordCheck(ctx, c, v)
}

func (s *Session) CaptureDeliveryProof(ctx context.Context, captured bool) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.CaptureDeliveryProof(ctx, captured)
}

func (s *Session) ConfirmPayment(ctx context.Context, confirmed bool) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.ConfirmPayment(ctx, confirmed)
}

func (s *Session) Complete(ctx context.Context) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.CompleteAndSettle(ctx)
}

func (s *Session) Transfer(ctx context.Context, amount int64, destination string) (persistence.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Transfer(ctx, types.INR(amount), destination, s.clock.Now())
}

func (s *Session) Dues() dues.Dues {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dues.Compute(s.machine.History())
}

// Settle clears every charge day up to today and returns the recomputed dues.
func (s *Session) Settle(ctx context.Context) (dues.Dues, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wm := s.dues.SettleUpTo(ctx, s.clock.Now())
	return s.dues.Compute(s.machine.History()), wm
}

func (s *Session) eligibilityLocked() offer.Eligibility {
	return offer.Eligibility{
		IsOnline:        s.online,
		HasCurrentOrder: s.machine.HasCurrent(),
		DuesBlocked:     s.dues.Compute(s.machine.History()).Blocked,
	}
}

func (s *Session) stateLocked() State {
	history := s.machine.History()
	st := State{
		WorkerID:     s.id,
		Online:       s.online,
		MemoryOnly:   s.store.MemoryOnly(),
		Ledger:       s.ledger.State(s.clock.Now()),
		Dues:         s.dues.Compute(history),
		OrderHistory: history,
	}
	if cur, ok := s.machine.Current(); ok {
		st.CurrentOrder = &cur
		if next, ok := nextStatus(cur.Status); ok {
			st.Missing = order.Missing(&cur, next)
		}
	}
	if v, ok := s.offers.Current(); ok {
		st.Offer = &v
	}
	return st
}

func nextStatus(s order.Status) (order.Status, bool) {
	next := order.AllowedTransitions[s]
	if len(next) == 0 {
		return order.StatusNone, false
	}
	return next[0], true
}

func (s *Session) offersLastOutcome() offer.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers.LastOutcome()
}
