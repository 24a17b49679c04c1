package domain

import (
	"time"
)

// RateLimitRule: не более Limit отправок за Window
type RateLimitRule struct {
	Limit  int           `json:"limit"`
	Window time.Duration `json:"window"`
}

// SubmissionRateRule: 3 отправки за 60 секунд в рамках одной сессии формы
var SubmissionRateRule = RateLimitRule{Limit: 3, Window: 60 * time.Second}

const (
	RateLimitScopeSession = "session"
	RateLimitScopeIP      = "ip"
)

func RateLimitKey(scope, id string) string {
	return "ratelimit:" + scope + ":" + id
}

// RateDecision: результат проверки окна. Count: число записей в окне
// после проверки.
type RateDecision struct {
	Limited bool `json:"limited"`
	Count   int  `json:"count"`
}
