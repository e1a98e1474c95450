// README: Dispatch handler: publish shared candidates into the redis offer pool.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"partner/internal/modules/order"
)

// Publisher is satisfied by *offer.RedisPool.
type Publisher interface {
	Publish(ctx context.Context, o order.Order) (order.Order, error)
}

type DispatchHandler struct {
	pool Publisher
}

func NewDispatchHandler(pool Publisher) *DispatchHandler {
	return &DispatchHandler{pool: pool}
}

func (h *DispatchHandler) PublishCandidate(c *gin.Context) {
	var o order.Order
	if err := c.ShouldBindJSON(&o); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if o.PartnerEarnings.Amount <= 0 {
		writeError(c, http.StatusBadRequest, "partnerEarnings must be positive")
		return
	}
	if o.PaymentMethod != order.PaymentPrepaid && o.PaymentMethod != order.PaymentCOD {
		writeError(c, http.StatusBadRequest, "paymentMethod must be prepaid or cod")
		return
	}
	published, err := h.pool.Publish(c.Request.Context(), o)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, published)
}
