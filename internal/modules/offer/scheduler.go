// README: OfferScheduler: surfaces at most one time-boxed offer and resolves it exactly once.
package offer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"partner/internal/logger"
	"partner/internal/modules/order"
	"partner/internal/types"
)

// Acceptor receives the order once the offer resolves to accept.
type Acceptor interface {
	Accept(ctx context.Context, o order.Order) (order.Order, error)
}

// Notifier alerts the worker about a new offer. Its failure never blocks the presentation.
type Notifier interface {
	Notify(ctx context.Context, o order.Order) error
}

const notifyTimeout = 10 * time.Second

// Scheduler must be called with mu held. The deadline callback takes mu itself, so the guard on
// the presentation is checked and set inside the same critical section as accept and decline.
type Scheduler struct {
	mu       sync.Locker
	clock    Clock
	pool     Pool
	notifier Notifier
	acceptor Acceptor
	workerID types.ID
	log      *logger.Logger

	current *presentation
	last    Outcome
}

type SchedulerDeps struct {
	Lock     sync.Locker
	Clock    Clock
	Pool     Pool
	Notifier Notifier
	Acceptor Acceptor
	WorkerID types.ID
	Log      *logger.Logger
}

func NewScheduler(d SchedulerDeps) *Scheduler {
	if d.Clock == nil {
		d.Clock = RealClock()
	}
	if d.Lock == nil {
		d.Lock = &sync.Mutex{}
	}
	return &Scheduler{
		mu:       d.Lock,
		clock:    d.Clock,
		pool:     d.Pool,
		notifier: d.Notifier,
		acceptor: d.Acceptor,
		workerID: d.WorkerID,
		log:      d.Log,
	}
}

// Current returns the outstanding offer, if any.
func (s *Scheduler) Current() (View, bool) {
	if s.current == nil {
		return View{}, false
	}
	return viewOf(s.current, s.clock.Now()), true
}

// LastOutcome is how the most recent offer was resolved.
func (s *Scheduler) LastOutcome() Outcome { return s.last }

// MaybeOffer surfaces one candidate when the worker is eligible and nothing is outstanding.
// It reports whether a new offer was shown.
func (s *Scheduler) MaybeOffer(ctx context.Context, elig Eligibility) (bool, error) {
	if s.current != nil || !elig.Eligible() || s.pool == nil {
		return false, nil
	}
	cands, err := s.pool.Candidates(ctx)
	if err != nil {
		return false, fmt.Errorf("load candidates: %w", err)
	}
	picked := PickRandom(cands, 1)
	if len(picked) == 0 {
		return false, nil
	}

	p := &presentation{order: picked[0].Clone(), shownAt: s.clock.Now()}
	p.timer = s.clock.AfterFunc(Deadline, func() { s.expire(p) })
	s.current = p

	s.log.Info("offer_shown", map[string]any{
		"worker_id": s.workerID,
		"order_id":  p.order.ID,
		"earnings":  p.order.PartnerEarnings.Amount,
	})
	s.notify(p.order)
	return true, nil
}

// Accept resolves the outstanding offer to accept. With nothing outstanding it is a no-op.
func (s *Scheduler) Accept(ctx context.Context) (Result, error) {
	p := s.resolve(OutcomeAccepted)
	if p == nil {
		return Result{}, nil
	}

	if s.pool != nil {
		ok, err := s.pool.Claim(ctx, p.order.ID)
		if err != nil {
			s.last = OutcomeNone
			return Result{}, fmt.Errorf("claim offer %s: %w", p.order.ID, err)
		}
		if !ok {
			s.last = OutcomeTaken
			s.log.Info("offer_taken", map[string]any{"worker_id": s.workerID, "order_id": p.order.ID})
			return Result{Outcome: OutcomeTaken}, ErrOfferTaken
		}
	}

	accepted, err := s.acceptor.Accept(ctx, p.order)
	if err != nil {
		s.last = OutcomeNone
		s.log.Error("offer_accept_failed", err, map[string]any{"worker_id": s.workerID, "order_id": p.order.ID})
		return Result{}, err
	}
	s.log.Info("offer_accepted", map[string]any{
		"worker_id": s.workerID,
		"order_id":  p.order.ID,
		"after_ms":  s.clock.Now().Sub(p.shownAt).Milliseconds(),
	})
	return Result{Outcome: OutcomeAccepted, Order: accepted}, nil
}

// Decline drops the outstanding offer. Nothing durable records it.
func (s *Scheduler) Decline() Result {
	p := s.resolve(OutcomeDeclined)
	if p == nil {
		return Result{}
	}
	s.log.Info("offer_declined", map[string]any{"worker_id": s.workerID, "order_id": p.order.ID})
	return Result{Outcome: OutcomeDeclined, Order: p.order.Clone()}
}

// resolve checks and sets the guard, stops the timer and clears the presentation.
// It returns nil when there was nothing left to resolve.
func (s *Scheduler) resolve(out Outcome) *presentation {
	p := s.current
	if p == nil || p.resolved {
		return nil
	}
	p.resolved = true
	p.timer.Stop()
	s.current = nil
	s.last = out
	return p
}

func (s *Scheduler) expire(p *presentation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.resolved {
		return
	}
	p.resolved = true
	if s.current == p {
		s.current = nil
	}
	s.last = OutcomeExpired
	s.log.Info("offer_expired", map[string]any{"worker_id": s.workerID, "order_id": p.order.ID})
}

func (s *Scheduler) notify(o order.Order) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, o); err != nil {
			s.log.Error("notify_failed", err, map[string]any{"worker_id": s.workerID, "order_id": o.ID})
		}
	}()
}
