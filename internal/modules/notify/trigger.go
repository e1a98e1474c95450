// README: NotificationTrigger backends: alert a worker that a new offer is waiting.
package notify

import (
	"context"
	"sync/atomic"
	"time"

	"partner/internal/logger"
	"partner/internal/modules/order"
	"partner/internal/types"
)

// Alert is one new-offer notification.
type Alert struct {
	WorkerID    types.ID
	DeviceToken string
	Order       order.Order
	SentAt      time.Time
}

type Trigger interface {
	Trigger(ctx context.Context, a Alert) error
}

// LogTrigger only records the alert. It is the default when no push backend is configured.
type LogTrigger struct {
	Log *logger.Logger
}

func (t LogTrigger) Trigger(_ context.Context, a Alert) error {
	t.Log.Info("offer_alert", map[string]any{
		"worker_id": a.WorkerID,
		"order_id":  a.Order.ID,
		"earnings":  a.Order.PartnerEarnings.Amount,
	})
	return nil
}

// Binding ties a Trigger to one worker and its current device token.
type Binding struct {
	trigger  Trigger
	workerID types.ID
	token    atomic.Pointer[string]
	now      func() time.Time
}

func Bind(t Trigger, workerID types.ID) *Binding {
	return &Binding{trigger: t, workerID: workerID, now: time.Now}
}

func (b *Binding) SetDeviceToken(token string) {
	b.token.Store(&token)
}

func (b *Binding) Notify(ctx context.Context, o order.Order) error {
	if b == nil || b.trigger == nil {
		return nil
	}
	var token string
	if p := b.token.Load(); p != nil {
		token = *p
	}
	return b.trigger.Trigger(ctx, Alert{WorkerID: b.workerID, DeviceToken: token, Order: o, SentAt: b.now()})
}
