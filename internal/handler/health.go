package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"contact_form/internal/service"
)

// Pinger: внешняя зависимость, доступность которой видна в /health
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	sessions service.FormSessionService
	hub      *service.RelayHub
	store    Pinger
}

func NewHealthHandler(sessions service.FormSessionService, hub *service.RelayHub, store Pinger) *HealthHandler {
	return &HealthHandler{
		sessions: sessions,
		hub:      hub,
		store:    store,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":            "ok",
		"service":           "contact-form",
		"active_sessions":   h.sessions.Active(),
		"relay_subscribers": h.hub.Subscribers(),
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["store"] = err.Error()
		}
	}

	c.JSON(status, body)
}
