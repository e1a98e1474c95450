// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"partner/internal/modules/ledger"
	"partner/internal/modules/offer"
	"partner/internal/modules/order"
	"partner/internal/modules/persistence"
)

type errorResponse struct {
	Error   string        `json:"error"`
	Missing []order.Check `json:"missing,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeDomainError is the single place domain errors become status codes.
func writeDomainError(c *gin.Context, err error) {
	var pe *order.PreconditionError
	switch {
	case errors.As(err, &pe):
		writeJSON(c, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Missing: pe.Missing})
	case errors.Is(err, order.ErrUnknownCheck),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrMissingDestination):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNoCurrentOrder), errors.Is(err, offer.ErrNoOffer):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrStaleTransition),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrCheckNotApplicable),
		errors.Is(err, offer.ErrOfferTaken):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, persistence.ErrUnavailable):
		writeError(c, http.StatusServiceUnavailable, "worker state unavailable")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
