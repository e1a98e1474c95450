package notify

import (
	"context"
	"fmt"
	"strconv"

	"firebase.google.com/go/v4/messaging"

	"partner/internal/logger"
)

// Sender is satisfied by *messaging.Client.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type FCMTrigger struct {
	client Sender
	log    *logger.Logger
}

func NewFCMTrigger(client Sender, log *logger.Logger) *FCMTrigger {
	return &FCMTrigger{client: client, log: log}
}

// Trigger sends a high-priority data message to the worker's device. The deviceToken is set
// when the worker goes online.
func (t *FCMTrigger) Trigger(ctx context.Context, a Alert) error {
	if a.DeviceToken == "" {
		return fmt.Errorf("empty device token for order %s", string(a.Order.ID))
	}
	o := a.Order
	msg := &messaging.Message{
		Token: a.DeviceToken,
		Data: map[string]string{
			"type":        "new_offer",
			"order_id":    string(o.ID),
			"pickup_lat":  strconv.FormatFloat(o.Pickup.Point.Lat, 'f', 6, 64),
			"pickup_lng":  strconv.FormatFloat(o.Pickup.Point.Lng, 'f', 6, 64),
			"dropoff_lat": strconv.FormatFloat(o.Dropoff.Point.Lat, 'f', 6, 64),
			"dropoff_lng": strconv.FormatFloat(o.Dropoff.Point.Lng, 'f', 6, 64),
			"earnings":    strconv.FormatInt(o.PartnerEarnings.Amount, 10),
			"payment":     string(o.PaymentMethod),
		},
		Notification: &messaging.Notification{
			Title: "New delivery offer",
			Body:  fmt.Sprintf("%.1f km, earn %s", o.DistanceKm, o.PartnerEarnings),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	messageID, err := t.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending FCM to token %s: %w", a.DeviceToken, err)
	}
	t.log.Debug("fcm_sent", map[string]any{"order_id": o.ID, "message_id": messageID})
	return nil
}
