package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"contact_form/internal/domain"
	"contact_form/internal/service"
	apperrors "contact_form/pkg/errors"
	"contact_form/pkg/logger"
)

// RateLimitMiddleware: грубая защита по IP поверх окна сессии формы
type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	rule             domain.RateLimitRule
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, rule domain.RateLimitRule, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		rule:             rule,
		log:              log,
	}
}

func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := domain.RateLimitKey(domain.RateLimitScopeIP, c.ClientIP())

		decision, err := m.rateLimitService.Check(c.Request.Context(), key, m.rule)
		if err != nil {
			m.log.Error("Rate limit check failed", "error", err)
			_ = c.Error(apperrors.ErrInternalServer)
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(m.rule.Limit))
		if decision.Limited {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(m.rule.Window.Seconds())))
			_ = c.Error(apperrors.ErrRateLimited)
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(m.rule.Limit-decision.Count))
		c.Next()
	}
}
