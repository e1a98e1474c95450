// README: PersistenceStore contract, in-memory backend, and the per-worker binding.
package persistence

import (
	"context"
	"fmt"
	"sync"

	"partner/internal/logger"
	"partner/internal/types"
)

// Store is a durable key/value store of snapshot slices, partitioned by worker id.
type Store interface {
	Load(ctx context.Context, workerID types.ID) (map[Key][]byte, error)
	Save(ctx context.Context, workerID types.ID, slices map[Key][]byte) error
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[types.ID]map[Key][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[types.ID]map[Key][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, workerID types.ID) (map[Key][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Key][]byte, len(m.data[workerID]))
	for k, v := range m.data[workerID] {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, workerID types.ID, slices map[Key][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.data[workerID]
	if !ok {
		w = make(map[Key][]byte, len(slices))
		m.data[workerID] = w
	}
	for k, v := range slices {
		w[k] = append([]byte(nil), v...)
	}
	return nil
}

// WorkerStore binds a Store to one worker. With no worker id (or no store) it runs memory-only:
// Load returns an empty snapshot and Save does nothing, both reporting ErrUnavailable.
type WorkerStore struct {
	store    Store
	workerID types.ID
	log      *logger.Logger
}

func ForWorker(store Store, workerID types.ID, log *logger.Logger) *WorkerStore {
	return &WorkerStore{store: store, workerID: workerID, log: log}
}

func (w *WorkerStore) WorkerID() types.ID {
	if w == nil {
		return ""
	}
	return w.workerID
}

func (w *WorkerStore) MemoryOnly() bool {
	return w == nil || w.store == nil || w.workerID == ""
}

func (w *WorkerStore) Load(ctx context.Context) (Snapshot, error) {
	if w.MemoryOnly() {
		return Snapshot{}, ErrUnavailable
	}
	raw, err := w.store.Load(ctx, w.workerID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: load %s: %v", ErrUnavailable, w.workerID, err)
	}
	return Decode(raw)
}

// Save writes the changed slices. Failures are logged and returned but never roll back memory state.
func (w *WorkerStore) Save(ctx context.Context, p Patch) error {
	if len(p) == 0 {
		return nil
	}
	if w.MemoryOnly() {
		w.log.Debug("persist_skipped", map[string]any{"worker_id": w.workerID, "keys": keys(p)})
		return ErrUnavailable
	}
	slices, err := p.Encode()
	if err == nil {
		err = w.store.Save(ctx, w.workerID, slices)
	}
	if err != nil {
		w.log.Error("persist_failed", err, map[string]any{"worker_id": w.workerID, "keys": keys(p)})
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Reset overwrites every stored slice with the default snapshot.
func (w *WorkerStore) Reset(ctx context.Context) error {
	return w.Save(ctx, Snapshot{}.Patch())
}

func keys(p Patch) []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, string(k))
	}
	return out
}
