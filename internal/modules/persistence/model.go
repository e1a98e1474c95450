// README: Durable per-worker snapshot shape, keyed slices, and patch encoding.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"partner/internal/modules/order"
	"partner/internal/types"
)

var (
	ErrUnavailable     = errors.New("persistence unavailable")
	ErrCorruptSnapshot = errors.New("corrupt persisted snapshot")
)

// Key names one independently persisted slice of a worker's state.
type Key string

const (
	KeyOrderHistory         Key = "orderHistory"
	KeyBalance              Key = "balance"
	KeyTotalEarningsToday   Key = "totalEarningsToday"
	KeyCompletedOrdersToday Key = "completedOrdersToday"
	KeyCountersDate         Key = "countersDate"
	KeyCurrentOrder         Key = "currentOrder"
	KeyLastBankTransfer     Key = "lastBankTransfer"
	KeyTransferHistory      Key = "transferHistory"
	KeySettlementWatermark  Key = "settlementWatermark"
)

type Transfer struct {
	ID          string      `json:"id"`
	Amount      types.Money `json:"amount"`
	Destination string      `json:"destination"`
	At          time.Time   `json:"at"`
}

type Snapshot struct {
	OrderHistory         []order.Order `json:"orderHistory"`
	Balance              types.Money   `json:"balance"`
	TotalEarningsToday   types.Money   `json:"totalEarningsToday"`
	CompletedOrdersToday int           `json:"completedOrdersToday"`
	CountersDate         string        `json:"countersDate"`
	CurrentOrder         *order.Order  `json:"currentOrder"`
	LastBankTransfer     *Transfer     `json:"lastBankTransfer"`
	TransferHistory      []Transfer    `json:"transferHistory"`
	// SettlementWatermark is a local calendar date (2006-01-02); empty means never settled.
	SettlementWatermark string `json:"settlementWatermark"`
}

// Patch holds only the slices that changed in one logical step.
type Patch map[Key]any

func (p Patch) Merge(other Patch) Patch {
	out := make(Patch, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Encode turns a patch into raw JSON values per key.
func (p Patch) Encode() (map[Key][]byte, error) {
	out := make(map[Key][]byte, len(p))
	for k, v := range p {
		if _, ok := (&Snapshot{}).field(k); !ok {
			return nil, fmt.Errorf("unknown snapshot key %q", k)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}

// Decode rebuilds a snapshot from raw slices. Missing keys keep zero values; unknown keys are ignored.
func Decode(raw map[Key][]byte) (Snapshot, error) {
	var s Snapshot
	for k, b := range raw {
		dst, ok := s.field(k)
		if !ok {
			continue
		}
		if err := json.Unmarshal(b, dst); err != nil {
			return Snapshot{}, fmt.Errorf("%w: key %s: %v", ErrCorruptSnapshot, k, err)
		}
	}
	return s, nil
}

// Patch covers every slice of the snapshot, so saving it overwrites whatever the store held.
func (s Snapshot) Patch() Patch {
	return Patch{
		KeyOrderHistory:         s.OrderHistory,
		KeyBalance:              s.Balance,
		KeyTotalEarningsToday:   s.TotalEarningsToday,
		KeyCompletedOrdersToday: s.CompletedOrdersToday,
		KeyCountersDate:         s.CountersDate,
		KeyCurrentOrder:         s.CurrentOrder,
		KeyLastBankTransfer:     s.LastBankTransfer,
		KeyTransferHistory:      s.TransferHistory,
		KeySettlementWatermark:  s.SettlementWatermark,
	}
}

func (s *Snapshot) field(k Key) (any, bool) {
	switch k {
	case KeyOrderHistory:
		return &s.OrderHistory, true
	case KeyBalance:
		return &s.Balance, true
	case KeyTotalEarningsToday:
		return &s.TotalEarningsToday, true
	case KeyCompletedOrdersToday:
		return &s.CompletedOrdersToday, true
	case KeyCountersDate:
		return &s.CountersDate, true
	case KeyCurrentOrder:
		return &s.CurrentOrder, true
	case KeyLastBankTransfer:
		return &s.LastBankTransfer, true
	case KeyTransferHistory:
		return &s.TransferHistory, true
	case KeySettlementWatermark:
		return &s.SettlementWatermark, true
	}
	return nil, false
}
