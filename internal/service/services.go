package service

import (
	"contact_form/internal/config"
	"contact_form/internal/domain"
	"contact_form/internal/repository"
	"contact_form/pkg/clock"
	"contact_form/pkg/logger"
)

type Services struct {
	RateLimit   RateLimitService
	Validator   FieldValidator
	Spam        SpamFilter
	Pipeline    Pipeline
	Presenter   Presenter
	Relay       *RelayHub
	Clock       *ClockBroadcaster
	FormSession FormSessionService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, rules config.FormRules, mailRelay MailRelay, clock clock.Clock, log logger.Logger) *Services {
	rateLimit := NewRateLimitService(repos.RateWindow, clock, log)
	validator := NewFieldValidator(rules.Fields)
	spam := NewSpamFilter(rules.Lexicon)
	pipeline := NewPipeline(validator, spam, rateLimit, domain.SubmissionRateRule, log)
	presenter := NewPresenter(clock, log)
	hub := NewRelayHub(32, log)

	deps := CoordinatorDeps{
		Pipeline:  pipeline,
		Validator: validator,
		Relay:     mailRelay,
		Sink:      hub,
		Presenter: presenter,
		Clock:     clock,
		RateRule:  domain.SubmissionRateRule,
		Log:       log,
	}

	services := &Services{
		RateLimit:   rateLimit,
		Validator:   validator,
		Spam:        spam,
		Pipeline:    pipeline,
		Presenter:   presenter,
		Relay:       hub,
		Clock:       NewClockBroadcaster(hub, clock),
		FormSession: NewFormSessionService(deps, rateLimit, cfg.FormToken, cfg.Form.SessionIdleTTL, log),
	}

	log.Info("Services initialized", "spam_phrases", len(rules.Lexicon))
	return services
}
