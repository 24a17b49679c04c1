package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"contact_form/internal/service"
	apperrors "contact_form/pkg/errors"
	"contact_form/pkg/logger"
)

const (
	FormTokenHeader = "X-Form-Token"
	SessionIDKey    = "session_id"
	coordinatorKey  = "form_coordinator"
)

type FormTokenMiddleware struct {
	sessions service.FormSessionService
	log      logger.Logger
}

func NewFormTokenMiddleware(sessions service.FormSessionService, log logger.Logger) *FormTokenMiddleware {
	return &FormTokenMiddleware{
		sessions: sessions,
		log:      log,
	}
}

// RequireToken находит координатор формы по X-Form-Token
func (m *FormTokenMiddleware) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(FormTokenHeader)
		if token == "" {
			_ = c.Error(apperrors.NewAPIError(FormTokenHeader+" header required", http.StatusUnauthorized))
			c.Abort()
			return
		}

		coordinator, err := m.sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			msg := "Invalid form token"
			if errors.Is(err, apperrors.ErrTokenExpired) {
				msg = "Form token expired, reload the form"
			}
			m.log.Debug("Form token rejected", "error", err)
			_ = c.Error(apperrors.NewAPIError(msg, apperrors.HTTPStatusFromError(err)))
			c.Abort()
			return
		}

		c.Set(coordinatorKey, coordinator)
		c.Set(SessionIDKey, coordinator.Session().ID)
		c.Next()
	}
}

// Coordinator возвращает координатор, установленный RequireToken
func Coordinator(c *gin.Context) (*service.Coordinator, bool) {
	v, ok := c.Get(coordinatorKey)
	if !ok {
		return nil, false
	}
	coordinator, ok := v.(*service.Coordinator)
	return coordinator, ok
}
