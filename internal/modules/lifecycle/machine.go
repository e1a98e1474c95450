// README: Order lifecycle machine: the single current order from acceptance to settlement.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"partner/internal/logger"
	"partner/internal/modules/order"
	"partner/internal/modules/persistence"
)

// Crediter receives the earnings of an order at the moment it completes.
type Crediter interface {
	Credit(o order.Order, now time.Time) persistence.Patch
}

// Machine is the only writer of the current order and the order history. It is not safe for
// concurrent use; callers serialize access (see worker.Session).
type Machine struct {
	current *order.Order
	history []order.Order

	store  *persistence.WorkerStore
	ledger Crediter
	now    func() time.Time
	log    *logger.Logger
}

func NewMachine(store *persistence.WorkerStore, ledger Crediter, now func() time.Time, log *logger.Logger) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{store: store, ledger: ledger, now: now, log: log}
}

// Restore seeds the machine from a loaded snapshot. A persisted current order with an unknown or
// terminal status is dropped.
func (m *Machine) Restore(s persistence.Snapshot) {
	m.history = append([]order.Order(nil), s.OrderHistory...)
	m.current = nil
	if c := s.CurrentOrder; c != nil {
		if c.Status.Valid() && !c.Status.Terminal() && c.ID != "" {
			cp := c.Clone()
			m.current = &cp
			return
		}
		m.log.Error("snapshot_reset", fmt.Errorf("discarding current order %s in status %q", c.ID, c.Status), map[string]any{
			"worker_id": m.store.WorkerID(),
		})
	}
}

func (m *Machine) HasCurrent() bool { return m.current != nil }

func (m *Machine) Current() (order.Order, bool) {
	if m.current == nil {
		return order.Order{}, false
	}
	return m.current.Clone(), true
}

func (m *Machine) History() []order.Order {
	out := make([]order.Order, len(m.history))
	for i := range m.history {
		out[i] = m.history[i].Clone()
	}
	return out
}

// Accept makes o the current order in ACCEPTED.
func (m *Machine) Accept(ctx context.Context, o order.Order) (order.Order, error) {
	if m.current != nil {
		return order.Order{}, fmt.Errorf("%w: order %s is already current", order.ErrInvalidTransition, m.current.ID)
	}
	if o.ID == "" {
		return order.Order{}, fmt.Errorf("%w: offer has no id", order.ErrInvalidTransition)
	}
	cur := o.Clone()
	cur.Status = order.StatusAccepted
	cur.Checks = order.Checks{}
	cur.Paid = false
	cur.PaymentProcessed = false
	cur.PaidAt = nil
	cur.Stamp(order.StatusAccepted, m.now())
	m.current = &cur

	m.persistCurrent(ctx)
	m.log.Info("order_accepted", map[string]any{"worker_id": m.store.WorkerID(), "order_id": cur.ID})
	return cur.Clone(), nil
}

// Advance moves the current order from expected to next. A mismatch between expected and the
// actual status is a stale caller and yields ErrStaleTransition; the caller must re-read.
func (m *Machine) Advance(ctx context.Context, expected, next order.Status) (order.Order, error) {
	if m.current == nil {
		return order.Order{}, order.ErrNoCurrentOrder
	}
	if m.current.Status != expected {
		return m.current.Clone(), fmt.Errorf("%w: expected %s, current is %s", order.ErrStaleTransition, expected, m.current.Status)
	}
	if !order.CanTransition(expected, next) {
		return m.current.Clone(), fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, expected, next)
	}
	if next == order.StatusCompleted {
		return m.CompleteAndSettle(ctx)
	}
	if missing := order.Missing(m.current, next); len(missing) > 0 {
		return m.current.Clone(), &order.PreconditionError{Next: next, Missing: missing}
	}

	m.current.Status = next
	m.current.Stamp(next, m.now())
	m.persistCurrent(ctx)
	m.log.Info("order_advanced", map[string]any{
		"worker_id": m.store.WorkerID(),
		"order_id":  m.current.ID,
		"from":      expected,
		"to":        next,
	})
	return m.current.Clone(), nil
}

// RecordCheck sets one checklist boolean. Pickup checks belong to PICKUP_REACHED, the delivery
// photo to CUSTOMER_REACHED.
func (m *Machine) RecordCheck(ctx context.Context, c order.Check, v bool) (order.Order, error) {
	if m.current == nil {
		return order.Order{}, order.ErrNoCurrentOrder
	}
	if c == order.CheckPaymentCollected {
		return m.ConfirmPayment(ctx, v)
	}
	stage, ok := order.CheckStage(c)
	if !ok {
		return m.current.Clone(), fmt.Errorf("%w: %s", order.ErrUnknownCheck, c)
	}
	if m.current.Status != stage {
		return m.current.Clone(), fmt.Errorf("%w: %s at %s", order.ErrCheckNotApplicable, c, m.current.Status)
	}
	if err := m.current.SetCheck(c, v); err != nil {
		return m.current.Clone(), err
	}
	m.persistCurrent(ctx)
	return m.current.Clone(), nil
}

// CaptureDeliveryProof records the result of the external photo capture at the drop-off.
func (m *Machine) CaptureDeliveryProof(ctx context.Context, captured bool) (order.Order, error) {
	return m.RecordCheck(ctx, order.CheckDeliveryPhoto, captured)
}

// ConfirmPayment records cash collection for a collect-on-delivery order at the drop-off.
func (m *Machine) ConfirmPayment(ctx context.Context, confirmed bool) (order.Order, error) {
	if m.current == nil {
		return order.Order{}, order.ErrNoCurrentOrder
	}
	if !m.current.IsCOD() {
		return m.current.Clone(), fmt.Errorf("%w: order %s is prepaid", order.ErrCheckNotApplicable, m.current.ID)
	}
	if m.current.Status != order.StatusCustomerReached {
		return m.current.Clone(), fmt.Errorf("%w: payment at %s", order.ErrCheckNotApplicable, m.current.Status)
	}
	if !confirmed || m.current.Paid {
		return m.current.Clone(), nil
	}
	now := m.now()
	m.current.Paid = true
	m.current.PaidAt = &now
	m.persistCurrent(ctx)
	return m.current.Clone(), nil
}

// CompleteAndSettle finishes the current order: it moves to history, the ledger is credited, and
// history, ledger and the cleared current slot are persisted in one save.
func (m *Machine) CompleteAndSettle(ctx context.Context) (order.Order, error) {
	if m.current == nil {
		return order.Order{}, order.ErrNoCurrentOrder
	}
	if m.current.Status != order.StatusCustomerReached {
		return m.current.Clone(), fmt.Errorf("%w: cannot complete from %s", order.ErrInvalidTransition, m.current.Status)
	}
	if missing := order.Missing(m.current, order.StatusCompleted); len(missing) > 0 {
		return m.current.Clone(), &order.PreconditionError{Next: order.StatusCompleted, Missing: missing}
	}

	now := m.now()
	done := m.current.Clone()
	done.Status = order.StatusCompleted
	done.Stamp(order.StatusCompleted, now)
	done.PaymentProcessed = true
	if !done.Paid {
		// prepaid orders settle at completion
		done.Paid = true
		done.PaidAt = &now
	}

	m.history = append(m.history, done)
	m.current = nil

	patch := persistence.Patch{
		persistence.KeyOrderHistory: m.history,
		persistence.KeyCurrentOrder: (*order.Order)(nil),
	}
	if m.ledger != nil {
		patch = patch.Merge(m.ledger.Credit(done, now))
	}
	_ = m.store.Save(ctx, patch)
	m.log.Info("order_completed", map[string]any{
		"worker_id": m.store.WorkerID(),
		"order_id":  done.ID,
		"earnings":  done.PartnerEarnings.Amount,
	})
	return done.Clone(), nil
}

func (m *Machine) persistCurrent(ctx context.Context) {
	_ = m.store.Save(ctx, persistence.Patch{persistence.KeyCurrentOrder: m.current})
}
