package handler

import (
	"contact_form/internal/config"
	"contact_form/internal/middleware"
	"contact_form/internal/service"
	"contact_form/pkg/logger"
)

type Handlers struct {
	Health *HealthHandler
	Form   *FormHandler
	Relay  *RelayHandler
}

func NewHandlers(services *service.Services, cfg *config.Config, store Pinger, log logger.Logger) *Handlers {
	checkOrigin := middleware.OriginAllowed(cfg.Server.CORSOrigins)

	return &Handlers{
		Health: NewHealthHandler(services.FormSession, services.Relay, store),
		Form:   NewFormHandler(services.FormSession, log),
		Relay:  NewRelayHandler(services.Relay, services.FormSession, cfg.Form.RelayOperatorToken, checkOrigin, log),
	}
}
