package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sciencecms/pmc-backend/internal/http/handlers"
	"github.com/sciencecms/pmc-backend/internal/middleware"
	"github.com/sciencecms/pmc-backend/internal/observability"
)

type RouterConfig struct {
	AuthMiddleware  *middleware.AuthMiddleware
	WebhookAuth     *middleware.WebhookAuth
	Metrics         *observability.Metrics
	HealthHandler   *handlers.HealthHandler
	PMCHandler      *handlers.PMCHandler
	ActivityHandler *handlers.ActivityHandler
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Webhook-Secret"},
		AllowCredentials: true,
	}))
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics(cfg.Metrics))

	// Public
	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// Machine callers (email parser, deposit worker)
	webhooks := router.Group("/api/webhooks")
	webhooks.Use(cfg.WebhookAuth.RequireSecret())
	webhooks.POST("/work-versions/:id/status", cfg.PMCHandler.ApplyStatusSignal)

	// Scientist-facing
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		api.POST("/work-versions/:id/grants", cfg.PMCHandler.AddGrant)
		api.PATCH("/work-versions/:id/grants", cfg.PMCHandler.UpdateGrantID)
		api.DELETE("/work-versions/:id/grants/hhmi/:uniqueId", cfg.PMCHandler.ClearInitialHHMIGrant)
		api.PUT("/work-versions/:id/grants/hhmi", cfg.PMCHandler.SetInitialHHMIGrant)
		api.DELETE("/work-versions/:id/grants/:entryId", cfg.PMCHandler.RemoveGrant)
		api.GET("/work-versions/:id/validate", cfg.PMCHandler.ValidateMetadata)
		api.POST("/work-versions/:id/confirm", cfg.PMCHandler.Confirm)
		api.POST("/submission-versions/:id/clone", cfg.PMCHandler.Clone)
		api.GET("/submission-versions/:id/activities", cfg.ActivityHandler.GetForSubmissionVersion)
	}

	return router
}
