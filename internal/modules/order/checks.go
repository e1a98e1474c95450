// README: Checkpoint preconditions and the error taxonomy for lifecycle transitions.
package order

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrStaleTransition    = errors.New("stale transition: expected status is not current")
	ErrPreconditionNotMet = errors.New("checkpoint precondition not met")
	ErrNoCurrentOrder     = errors.New("no current order")
	ErrUnknownCheck       = errors.New("unknown check")
	ErrCheckNotApplicable = errors.New("check not applicable at current status")
)

type Check string

const (
	CheckItemsVerified    Check = "items_verified"
	CheckOrderIDConfirmed Check = "order_id_confirmed"
	CheckPickupPhoto      Check = "pickup_photo"
	CheckDeliveryPhoto    Check = "delivery_photo"
	CheckPaymentCollected Check = "payment_collected"
)

// PreconditionError lists the checks that must be satisfied before the transition.
type PreconditionError struct {
	Next    Status
	Missing []Check
}

func (e *PreconditionError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = string(c)
	}
	return fmt.Sprintf("cannot enter %s: missing %s", e.Next, strings.Join(names, ", "))
}

func (e *PreconditionError) Unwrap() error { return ErrPreconditionNotMet }

// Missing returns the checks o still lacks for entering next. Empty means the transition may proceed.
func Missing(o *Order, next Status) []Check {
	var missing []Check
	switch next {
	case StatusPickupComplete:
		if !o.Checks.ItemsVerified {
			missing = append(missing, CheckItemsVerified)
		}
		if !o.Checks.OrderIDConfirmed {
			missing = append(missing, CheckOrderIDConfirmed)
		}
		if !o.Checks.PickupPhoto {
			missing = append(missing, CheckPickupPhoto)
		}
	case StatusCompleted:
		if !o.Checks.DeliveryPhoto {
			missing = append(missing, CheckDeliveryPhoto)
		}
		if o.IsCOD() && !o.Paid {
			missing = append(missing, CheckPaymentCollected)
		}
	}
	return missing
}

// CheckStage is the status at which c may be recorded.
func CheckStage(c Check) (Status, bool) {
	switch c {
	case CheckItemsVerified, CheckOrderIDConfirmed, CheckPickupPhoto:
		return StatusPickupReached, true
	case CheckDeliveryPhoto, CheckPaymentCollected:
		return StatusCustomerReached, true
	}
	return StatusNone, false
}

// SetCheck flips one of the pickup/delivery checklist booleans.
func (o *Order) SetCheck(c Check, v bool) error {
	switch c {
	case CheckItemsVerified:
		o.Checks.ItemsVerified = v
	case CheckOrderIDConfirmed:
		o.Checks.OrderIDConfirmed = v
	case CheckPickupPhoto:
		o.Checks.PickupPhoto = v
	case CheckDeliveryPhoto:
		o.Checks.DeliveryPhoto = v
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCheck, c)
	}
	return nil
}
