package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"contact_form/internal/config"
	"contact_form/internal/middleware"
	apperrors "contact_form/pkg/errors"
	"contact_form/pkg/logger"
)

func SetupRouter(
	handlers *Handlers,
	formTokenMiddleware *middleware.FormTokenMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		forms := v1.Group("/forms")
		{
			forms.GET("/session", handlers.Form.Session)
			forms.POST("/validate", formTokenMiddleware.RequireToken(), handlers.Form.Validate)
			forms.POST("/submit", rateLimitMiddleware.Limit(), formTokenMiddleware.RequireToken(), handlers.Form.Submit)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.ErrNotFound)
	})

	// Канал Relay: отправленные формы и тики часов
	router.GET("/ws/relay", handlers.Relay.Subscribe)

	return router
}
