package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"partner/internal/types"
)

// Publisher is satisfied by infra.AMQPClient.
type Publisher interface {
	PublishPersistent(ctx context.Context, exchange, key string, body []byte) error
}

// AMQPTrigger fans the alert out to whatever consumers deliver sound/vibration/push.
type AMQPTrigger struct {
	pub      Publisher
	exchange string
}

func NewAMQPTrigger(pub Publisher, exchange string) *AMQPTrigger {
	return &AMQPTrigger{pub: pub, exchange: exchange}
}

type alertMessage struct {
	Type        string      `json:"type"`
	WorkerID    types.ID    `json:"worker_id"`
	DeviceToken string      `json:"device_token,omitempty"`
	OrderID     types.ID    `json:"order_id"`
	Earnings    types.Money `json:"earnings"`
	Pickup      string      `json:"pickup"`
	Dropoff     string      `json:"dropoff"`
	DistanceKm  float64     `json:"distance_km"`
	SentAt      string      `json:"sent_at"`
}

func (t *AMQPTrigger) Trigger(ctx context.Context, a Alert) error {
	body, err := json.Marshal(alertMessage{
		Type:        "new_offer",
		WorkerID:    a.WorkerID,
		DeviceToken: a.DeviceToken,
		OrderID:     a.Order.ID,
		Earnings:    a.Order.PartnerEarnings,
		Pickup:      a.Order.Pickup.Address,
		Dropoff:     a.Order.Dropoff.Address,
		DistanceKm:  a.Order.DistanceKm,
		SentAt:      a.SentAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	if err := t.pub.PublishPersistent(ctx, t.exchange, "", body); err != nil {
		return fmt.Errorf("publish alert for order %s: %w", a.Order.ID, err)
	}
	return nil
}
