package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/immolink/backend/api/handler"
)

type Handlers struct {
	Collaboration *apiHandler.CollaborationHandler
	Contract      *apiHandler.ContractHandler
	Progress      *apiHandler.ProgressHandler
	Health        *apiHandler.HealthHandler
}

func New(handlers Handlers, guard func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Collaboration lifecycle
	r.GET("/api/v1/collaborations", guard(handlers.Collaboration.List))
	r.POST("/api/v1/collaborations", guard(handlers.Collaboration.Propose))
	r.GET("/api/v1/collaborations/{id}", guard(handlers.Collaboration.Get))
	r.POST("/api/v1/collaborations/{id}/respond", guard(handlers.Collaboration.Respond))
	r.POST("/api/v1/collaborations/{id}/cancel", guard(handlers.Collaboration.Cancel))
	r.POST("/api/v1/collaborations/{id}/complete", guard(handlers.Collaboration.Complete))
	r.POST("/api/v1/collaborations/{id}/notes", guard(handlers.Collaboration.AddNote))

	// Contract subsystem
	r.GET("/api/v1/collaborations/{id}/contract", guard(handlers.Contract.Get))
	r.PUT("/api/v1/collaborations/{id}/contract", guard(handlers.Contract.Update))
	r.POST("/api/v1/collaborations/{id}/sign", guard(handlers.Contract.Sign))

	// Progress tracker
	r.POST("/api/v1/collaborations/{id}/progress", guard(handlers.Progress.Advance))
	r.GET("/api/v1/progress-steps", guard(handlers.Progress.Steps))

	return r
}
