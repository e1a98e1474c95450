// README: API gateway; registers HTTP routes and delegates to the worker sessions.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"partner/internal/http/handlers"
	"partner/internal/http/middleware"
	"partner/internal/infra"
	"partner/internal/logger"
)

type ServerDeps struct {
	Sessions handlers.Sessions
	Verifier infra.TokenVerifier
	// Dispatch is nil unless the shared redis pool is configured.
	Dispatch handlers.Publisher
	Log      *logger.Logger
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(s.deps.Log), middleware.Logging(s.deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(s.deps.Verifier))

	wh := handlers.NewWorkerHandler(s.deps.Sessions)
	w := api.Group("/worker")
	w.POST("/online", wh.SetOnline)
	w.GET("/state", wh.State)
	w.GET("/offer", wh.Offer)
	w.POST("/offer/accept", wh.AcceptOffer)
	w.POST("/offer/decline", wh.DeclineOffer)
	w.POST("/order/advance", wh.Advance)
	w.POST("/order/checks", wh.RecordCheck)
	w.POST("/order/proof", wh.CaptureProof)
	w.POST("/order/payment", wh.ConfirmPayment)
	w.POST("/order/complete", wh.Complete)
	w.POST("/ledger/transfer", wh.Transfer)
	w.GET("/dues", wh.Dues)
	w.POST("/dues/settle", wh.Settle)

	if s.deps.Dispatch != nil {
		dh := handlers.NewDispatchHandler(s.deps.Dispatch)
		api.POST("/dispatch/candidates", dh.PublishCandidate)
	}
	return r
}
