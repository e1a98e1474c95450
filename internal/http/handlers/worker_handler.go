// README: Worker handlers: online status, offers, checkpoints, ledger and dues.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"partner/internal/http/middleware"
	"partner/internal/modules/order"
	"partner/internal/modules/worker"
	"partner/internal/types"
)

// Sessions is satisfied by *worker.Manager.
type Sessions interface {
	Session(ctx context.Context, id types.ID) (*worker.Session, error)
}

type WorkerHandler struct {
	sessions Sessions
}

func NewWorkerHandler(sessions Sessions) *WorkerHandler {
	return &WorkerHandler{sessions: sessions}
}

func (h *WorkerHandler) session(c *gin.Context) (*worker.Session, bool) {
	s, err := h.sessions.Session(c.Request.Context(), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeDomainError(c, err)
		return nil, false
	}
	return s, true
}

type onlineReq struct {
	Online      bool   `json:"online"`
	DeviceToken string `json:"device_token"`
}

func (h *WorkerHandler) SetOnline(c *gin.Context) {
	var req onlineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, s.SetOnline(req.Online, req.DeviceToken))
}

func (h *WorkerHandler) State(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, s.State())
}

func (h *WorkerHandler) Offer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	v, ok := s.Offer()
	if !ok {
		writeJSON(c, http.StatusOK, gin.H{"offer": nil})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"offer": v})
}

// AcceptOffer is idempotent: with nothing outstanding it reports an empty outcome.
func (h *WorkerHandler) AcceptOffer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	res, err := s.AcceptOffer(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (h *WorkerHandler) DeclineOffer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, s.DeclineOffer())
}

type advanceReq struct {
	Expected string `json:"expected" binding:"required"`
	Next     string `json:"next" binding:"required"`
}

func (h *WorkerHandler) Advance(c *gin.Context) {
	var req advanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "expected and next are required")
		return
	}
	expected, next := order.Status(req.Expected), order.Status(req.Next)
	if !expected.Valid() || !next.Valid() {
		writeError(c, http.StatusBadRequest, "unknown status")
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	o, err := s.Advance(c.Request.Context(), expected, next)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type checkReq struct {
	Check string `json:"check" binding:"required"`
	Value bool   `json:"value"`
}

func (h *WorkerHandler) RecordCheck(c *gin.Context) {
	var req checkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "check is required")
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	o, err := s.RecordCheck(c.Request.Context(), order.Check(req.Check), req.Value)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type proofReq struct {
	Captured bool `json:"captured"`
}

func (h *WorkerHandler) CaptureProof(c *gin.Context) {
	var req proofReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	o, err := s.CaptureDeliveryProof(c.Request.Context(), req.Captured)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type paymentReq struct {
	Confirmed bool `json:"confirmed"`
}

func (h *WorkerHandler) ConfirmPayment(c *gin.Context) {
	var req paymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	o, err := s.ConfirmPayment(c.Request.Context(), req.Confirmed)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *WorkerHandler) Complete(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	o, err := s.Complete(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type transferReq struct {
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
}

func (h *WorkerHandler) Transfer(c *gin.Context) {
	var req transferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	tr, err := s.Transfer(c.Request.Context(), req.Amount, req.Destination)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, tr)
}

func (h *WorkerHandler) Dues(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, s.Dues())
}

func (h *WorkerHandler) Settle(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	d, wm := s.Settle(c.Request.Context())
	writeJSON(c, http.StatusOK, gin.H{"dues": d, "settlementWatermark": wm})
}
