// README: Persistence tests (memory backend, patch codec, memory-only mode, DB/Redis when available).
package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"partner/internal/logger"
	"partner/internal/modules/order"
	"partner/internal/types"
)

func TestLoadMissingKeysDefaultToZero(t *testing.T) {
	ws := ForWorker(NewMemoryStore(), "w_empty", nil)
	snap, err := ws.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.CurrentOrder != nil || len(snap.OrderHistory) != 0 || snap.Balance.Amount != 0 || snap.CompletedOrdersToday != 0 {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}

func TestSaveWritesOnlyChangedSlices(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	ws := ForWorker(mem, "w1", nil)

	cur := &order.Order{ID: "o1", Status: order.StatusAccepted}
	if err := ws.Save(ctx, Patch{KeyCurrentOrder: cur, KeyBalance: types.INR(50)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := ws.Save(ctx, Patch{KeyBalance: types.INR(155)}); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, _ := mem.Load(ctx, "w1")
	if len(raw) != 2 {
		t.Fatalf("expected 2 stored keys, got %d", len(raw))
	}
	snap, err := ws.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Balance.Amount != 155 {
		t.Fatalf("expected balance 155, got %d", snap.Balance.Amount)
	}
	if snap.CurrentOrder == nil || snap.CurrentOrder.ID != "o1" {
		t.Fatalf("expected current order o1, got %+v", snap.CurrentOrder)
	}

	// clearing the current order persists a null slice
	if err := ws.Save(ctx, Patch{KeyCurrentOrder: (*order.Order)(nil)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, _ = ws.Load(ctx)
	if snap.CurrentOrder != nil {
		t.Fatalf("expected cleared current order, got %+v", snap.CurrentOrder)
	}
}

func TestWorkersArePartitioned(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	_ = ForWorker(mem, "w1", nil).Save(ctx, Patch{KeyBalance: types.INR(10)})
	snap, _ := ForWorker(mem, "w2", nil).Load(ctx)
	if snap.Balance.Amount != 0 {
		t.Fatalf("worker w2 saw w1 balance: %d", snap.Balance.Amount)
	}
}

func TestMemoryOnlyMode(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	ws := ForWorker(NewMemoryStore(), "", logger.NewWithWriter("partner", &buf))
	if !ws.MemoryOnly() {
		t.Fatal("expected memory-only without worker id")
	}
	if err := ws.Save(ctx, Patch{KeyBalance: types.INR(10)}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := ws.Load(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"action":"persist_skipped"`)) {
		t.Fatalf("skipped save should be logged, got %q", buf.String())
	}
}

func TestResetOverwritesCorruptSlices(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Save(ctx, "w1", map[Key][]byte{
		KeyTransferHistory: []byte(`"garbage"`),
		KeyBalance:         []byte(`{"amount":`),
	})
	ws := ForWorker(store, "w1", nil)
	if _, err := ws.Load(ctx); !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
	}
	if err := ws.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	snap, err := ws.Load(ctx)
	if err != nil {
		t.Fatalf("load after reset: %v", err)
	}
	if snap.Balance.Amount != 0 || snap.TransferHistory != nil || snap.CurrentOrder != nil {
		t.Fatalf("expected defaults after reset, got %+v", snap)
	}
	raw, _ := store.Load(ctx, "w1")
	for _, k := range []Key{KeyOrderHistory, KeyBalance, KeyTotalEarningsToday, KeyCompletedOrdersToday,
		KeyCountersDate, KeyCurrentOrder, KeyLastBankTransfer, KeyTransferHistory, KeySettlementWatermark} {
		if _, ok := raw[k]; !ok {
			t.Errorf("reset did not write %s", k)
		}
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context, types.ID) (map[Key][]byte, error) {
	return nil, errors.New("disk gone")
}
func (failingStore) Save(context.Context, types.ID, map[Key][]byte) error {
	return errors.New("disk gone")
}

func TestSaveFailureIsReportedAsUnavailable(t *testing.T) {
	ws := ForWorker(failingStore{}, "w1", nil)
	if err := ws.Save(context.Background(), Patch{KeyBalance: types.INR(1)}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestDecodeCorruptSlice(t *testing.T) {
	_, err := Decode(map[Key][]byte{KeyBalance: []byte("{not json")})
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
	}
}

func TestDecodeIgnoresUnknownKeys(t *testing.T) {
	snap, err := Decode(map[Key][]byte{"legacyField": []byte(`"x"`), KeyCompletedOrdersToday: []byte("3")})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.CompletedOrdersToday != 3 {
		t.Fatalf("expected 3, got %d", snap.CompletedOrdersToday)
	}
}

func TestEncodeRejectsUnknownKey(t *testing.T) {
	if _, err := (Patch{"bogus": 1}).Encode(); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestPatchMerge(t *testing.T) {
	p := Patch{KeyBalance: 1}.Merge(Patch{KeyBalance: 2, KeyCountersDate: "2026-01-01"})
	if p[KeyBalance] != 2 || len(p) != 2 {
		t.Fatalf("unexpected merge result: %v", p)
	}
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("PARTNER_TEST_DSN")
	if dsn == "" {
		t.Skip("PARTNER_TEST_DSN not set; skipping DB-backed persistence test")
	}
	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	roundTrip(t, store)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("PARTNER_TEST_REDIS")
	if addr == "" {
		t.Skip("PARTNER_TEST_REDIS not set; skipping Redis-backed persistence test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	roundTrip(t, NewRedisStore(rdb))
}

func roundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	id := types.ID(fmt.Sprintf("w_rt_%d", time.Now().UnixNano()))
	ws := ForWorker(store, id, nil)

	done := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	hist := []order.Order{{ID: "o1", Status: order.StatusCompleted, CompletedAt: &done, PartnerEarnings: types.INR(105)}}
	if err := ws.Save(ctx, Patch{KeyOrderHistory: hist, KeyBalance: types.INR(105), KeySettlementWatermark: "2026-02-28"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := ws.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.OrderHistory) != 1 || snap.OrderHistory[0].ID != "o1" {
		t.Fatalf("history not restored: %+v", snap.OrderHistory)
	}
	if !snap.OrderHistory[0].CompletedAt.Equal(done) {
		t.Fatalf("completedAt mismatch: %v", snap.OrderHistory[0].CompletedAt)
	}
	if snap.Balance.Amount != 105 || snap.SettlementWatermark != "2026-02-28" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
