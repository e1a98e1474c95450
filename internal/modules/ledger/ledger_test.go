// README: Ledger tests (credit, daily rollover, transfer guard, persistence of slices).
package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"partner/internal/modules/order"
	"partner/internal/modules/persistence"
	"partner/internal/types"
)

var day1 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*Ledger, *persistence.WorkerStore) {
	t.Helper()
	ws := persistence.ForWorker(persistence.NewMemoryStore(), "w1", nil)
	return New(ws, time.UTC, nil), ws
}

func TestCreditAddsExactlyPartnerEarnings(t *testing.T) {
	l, _ := newTestLedger(t)
	before := l.State(day1).Balance.Amount

	patch := l.Credit(order.Order{ID: "o1", PartnerEarnings: types.INR(105)}, day1)

	st := l.State(day1)
	if st.Balance.Amount != before+105 {
		t.Fatalf("expected balance %d, got %d", before+105, st.Balance.Amount)
	}
	if st.TotalEarningsToday.Amount != 105 || st.CompletedOrdersToday != 1 {
		t.Fatalf("unexpected today counters: %+v", st)
	}
	for _, k := range []persistence.Key{persistence.KeyBalance, persistence.KeyTotalEarningsToday, persistence.KeyCompletedOrdersToday, persistence.KeyCountersDate} {
		if _, ok := patch[k]; !ok {
			t.Fatalf("credit patch missing %s", k)
		}
	}
}

func TestCreditRollsOverDailyCounters(t *testing.T) {
	l, _ := newTestLedger(t)
	l.Credit(order.Order{PartnerEarnings: types.INR(100)}, day1)
	l.Credit(order.Order{PartnerEarnings: types.INR(50)}, day1.Add(time.Hour))

	day2 := day1.Add(24 * time.Hour)
	if st := l.State(day2); st.CompletedOrdersToday != 0 || st.TotalEarningsToday.Amount != 0 {
		t.Fatalf("expected zero counters on a new day before any credit, got %+v", st)
	}
	l.Credit(order.Order{PartnerEarnings: types.INR(70)}, day2)

	st := l.State(day2)
	if st.CompletedOrdersToday != 1 || st.TotalEarningsToday.Amount != 70 {
		t.Fatalf("expected reset counters on new day, got %+v", st)
	}
	if st.Balance.Amount != 220 {
		t.Fatalf("balance must not reset, got %d", st.Balance.Amount)
	}
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		amount      int64
		destination string
		wantErr     error
		wantBalance int64
	}{
		{name: "within_balance", amount: 60, destination: "HDFC-1234", wantBalance: 40},
		{name: "exact_balance", amount: 100, destination: "HDFC-1234", wantBalance: 0},
		{name: "exceeds_balance", amount: 101, destination: "HDFC-1234", wantErr: ErrInsufficientBalance, wantBalance: 100},
		{name: "zero_amount", amount: 0, destination: "HDFC-1234", wantErr: ErrInvalidAmount, wantBalance: 100},
		{name: "negative_amount", amount: -5, destination: "HDFC-1234", wantErr: ErrInvalidAmount, wantBalance: 100},
		{name: "no_destination", amount: 10, destination: "", wantErr: ErrMissingDestination, wantBalance: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, ws := newTestLedger(t)
			l.Credit(order.Order{PartnerEarnings: types.INR(100)}, day1)

			tr, err := l.Transfer(ctx, types.INR(tt.amount), tt.destination, day1)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			st := l.State(day1)
			if st.Balance.Amount != tt.wantBalance {
				t.Fatalf("expected balance %d, got %d", tt.wantBalance, st.Balance.Amount)
			}
			if tt.wantErr != nil {
				if st.LastBankTransfer != nil {
					t.Fatal("failed transfer must not be recorded")
				}
				return
			}
			if st.LastBankTransfer == nil || st.LastBankTransfer.ID != tr.ID || len(st.TransferHistory) != 1 {
				t.Fatalf("transfer not recorded: %+v", st)
			}
			snap, err := ws.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if snap.Balance.Amount != tt.wantBalance || snap.LastBankTransfer == nil {
				t.Fatalf("transfer not persisted: %+v", snap)
			}
		})
	}
}

func TestRestoreFromSnapshot(t *testing.T) {
	l, _ := newTestLedger(t)
	l.Restore(persistence.Snapshot{
		Balance:              types.Money{Amount: 300},
		TotalEarningsToday:   types.Money{Amount: 40},
		CompletedOrdersToday: 2,
		CountersDate:         "2026-05-04",
	})
	st := l.State(day1)
	if st.Balance.Amount != 300 || st.Balance.Currency != types.DefaultCurrency {
		t.Fatalf("unexpected restored balance: %+v", st.Balance)
	}
	if st.CompletedOrdersToday != 2 || st.TotalEarningsToday.Amount != 40 {
		t.Fatalf("unexpected restored counters: %+v", st)
	}
}

func TestMemoryOnlyTransferStillApplies(t *testing.T) {
	l := New(persistence.ForWorker(nil, "", nil), time.UTC, nil)
	l.Credit(order.Order{PartnerEarnings: types.INR(10)}, day1)
	if _, err := l.Transfer(context.Background(), types.INR(4), "acct", day1); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := l.State(day1).Balance.Amount; got != 6 {
		t.Fatalf("expected 6, got %d", got)
	}
}
