package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"partner/internal/logger"
	"partner/internal/modules/notify"
	"partner/internal/modules/offer"
	"partner/internal/modules/persistence"
	"partner/internal/types"
)

type Options struct {
	Store        persistence.Store
	Pool         offer.Pool
	Trigger      notify.Trigger
	Clock        offer.Clock
	Location     *time.Location
	PerDayCharge int64
	Tick         time.Duration
	Log          *logger.Logger
}

// Manager owns one Session per worker id, loaded lazily from the store.
type Manager struct {
	opts Options

	mu       sync.Mutex
	sessions map[types.ID]*Session
	loads    singleflight.Group
}

func NewManager(opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = offer.RealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Tick <= 0 {
		opts.Tick = 5 * time.Second
	}
	return &Manager{opts: opts, sessions: make(map[types.ID]*Session)}
}

// Session returns the worker's session, loading it on first use. An empty id yields the shared
// memory-only session. A corrupt snapshot is overwritten with defaults; a store that cannot be read
// is reported and nothing is cached, so a later call retries the load. Loads run outside mu and
// concurrent loads of one id share a single store read.
func (m *Manager) Session(ctx context.Context, id types.ID) (*Session, error) {
	if s, ok := m.cached(id); ok {
		return s, nil
	}
	v, err, _ := m.loads.Do(string(id), func() (any, error) {
		if s, ok := m.cached(id); ok {
			return s, nil
		}
		s, err := m.load(ctx, id)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.sessions[id] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) cached(id types.ID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) load(ctx context.Context, id types.ID) (*Session, error) {
	ws := persistence.ForWorker(m.opts.Store, id, m.opts.Log)
	snap, err := ws.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, persistence.ErrCorruptSnapshot):
		m.opts.Log.Error("snapshot_reset", err, map[string]any{"worker_id": id})
		snap = persistence.Snapshot{}
		// a failed reset is logged by the store; the next load resets again
		_ = ws.Reset(ctx)
	case ws.MemoryOnly():
		snap = persistence.Snapshot{}
	default:
		return nil, err
	}

	s := newSession(id, sessionDeps{
		store:        ws,
		pool:         m.opts.Pool,
		trigger:      m.opts.Trigger,
		clock:        m.opts.Clock,
		loc:          m.opts.Location,
		perDayCharge: m.opts.PerDayCharge,
		log:          m.opts.Log,
	}, snap)
	m.opts.Log.Info("session_loaded", map[string]any{
		"worker_id":   id,
		"memory_only": ws.MemoryOnly(),
		"resumed":     snap.CurrentOrder != nil,
	})
	return s, nil
}

func (m *Manager) online() []*Session {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	out := all[:0]
	for _, s := range all {
		if s.Online() {
			out = append(out, s)
		}
	}
	return out
}

// OfferTick runs one eligibility pass over every online session.
func (m *Manager) OfferTick(ctx context.Context) {
	for _, s := range m.online() {
		if _, err := s.MaybeOffer(ctx); err != nil {
			m.opts.Log.Error("offer_tick_failed", err, map[string]any{"worker_id": s.ID()})
		}
	}
}

// RunOfferTicker calls OfferTick every tick until ctx is done.
func (m *Manager) RunOfferTicker(ctx context.Context) {
	ticker := time.NewTicker(m.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.OfferTick(ctx)
		}
	}
}
