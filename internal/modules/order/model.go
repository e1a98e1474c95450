// README: Order aggregate, checkpoint statuses and the transition table.
package order

import (
	"time"

	"partner/internal/types"
)

type Status string

const (
	StatusNone            Status = ""
	StatusAccepted        Status = "ACCEPTED"
	StatusPickupReached   Status = "PICKUP_REACHED"
	StatusPickupComplete  Status = "PICKUP_COMPLETE"
	StatusCustomerReached Status = "CUSTOMER_REACHED"
	StatusCompleted       Status = "COMPLETED"
)

type PaymentMethod string

const (
	PaymentPrepaid PaymentMethod = "prepaid"
	PaymentCOD     PaymentMethod = "cod"
)

type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Location struct {
	Address string      `json:"address"`
	Point   types.Point `json:"point"`
}

type LineItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Checks are the checkpoint booleans set by the worker or by capture collaborators.
type Checks struct {
	ItemsVerified    bool `json:"itemsVerified"`
	OrderIDConfirmed bool `json:"orderIdConfirmed"`
	PickupPhoto      bool `json:"pickupPhoto"`
	DeliveryPhoto    bool `json:"deliveryPhoto"`
}

type Order struct {
	ID              types.ID      `json:"id"`
	Sender          Contact       `json:"sender"`
	Customer        Contact       `json:"customer"`
	Pickup          Location      `json:"pickup"`
	Dropoff         Location      `json:"dropoff"`
	Parcel          string        `json:"parcel"`
	OrderValue      types.Money   `json:"orderValue"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	DistanceKm      float64       `json:"distanceKm"`
	DurationMin     int           `json:"durationMin"`
	PartnerEarnings types.Money   `json:"partnerEarnings"`
	Items           []LineItem    `json:"items"`

	Status            Status     `json:"status"`
	Checks            Checks     `json:"checks"`
	Paid              bool       `json:"paid"`
	PaymentProcessed  bool       `json:"paymentProcessed,omitempty"`
	AcceptedAt        *time.Time `json:"acceptedAt,omitempty"`
	PickupReachedAt   *time.Time `json:"pickup_reachedAt,omitempty"`
	PickupCompleteAt  *time.Time `json:"pickup_completeAt,omitempty"`
	CustomerReachedAt *time.Time `json:"customer_reachedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	PaidAt            *time.Time `json:"paidAt,omitempty"`
}

// AllowedTransitions represents the checkpoint sequence as code. There is no rollback.
var AllowedTransitions = map[Status][]Status{
	StatusNone:            {StatusAccepted},
	StatusAccepted:        {StatusPickupReached},
	StatusPickupReached:   {StatusPickupComplete},
	StatusPickupComplete:  {StatusCustomerReached},
	StatusCustomerReached: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusAccepted, StatusPickupReached, StatusPickupComplete, StatusCustomerReached, StatusCompleted:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted
}

func (o *Order) IsCOD() bool {
	return o.PaymentMethod == PaymentCOD
}

// Stamp records t as the time the order entered s.
func (o *Order) Stamp(s Status, t time.Time) {
	ts := t
	switch s {
	case StatusAccepted:
		o.AcceptedAt = &ts
	case StatusPickupReached:
		o.PickupReachedAt = &ts
	case StatusPickupComplete:
		o.PickupCompleteAt = &ts
	case StatusCustomerReached:
		o.CustomerReachedAt = &ts
	case StatusCompleted:
		o.CompletedAt = &ts
	}
}

// Clone returns a deep copy so history entries never alias the live order.
func (o Order) Clone() Order {
	cp := o
	if o.Items != nil {
		cp.Items = append([]LineItem(nil), o.Items...)
	}
	cp.AcceptedAt = cloneTime(o.AcceptedAt)
	cp.PickupReachedAt = cloneTime(o.PickupReachedAt)
	cp.PickupCompleteAt = cloneTime(o.PickupCompleteAt)
	cp.CustomerReachedAt = cloneTime(o.CustomerReachedAt)
	cp.CompletedAt = cloneTime(o.CompletedAt)
	cp.PaidAt = cloneTime(o.PaidAt)
	return cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
