package service

import (
	"context"
	"fmt"
	"time"

	"contact_form/internal/domain"
	"contact_form/pkg/logger"
)

// MinFillTime: отправка быстрее этого считается автоматической
const MinFillTime = 2 * time.Second

// Pipeline: последовательные этапы фильтра. Первый отказ останавливает
// проверку. Ошибка возвращается только при сбое хранилища.
type Pipeline interface {
	Run(ctx context.Context, session domain.FormSession, attempt domain.SubmissionAttempt) (*domain.Rejection, error)
}

type pipeline struct {
	validator FieldValidator
	spam      SpamFilter
	rateLimit RateLimitService
	rule      domain.RateLimitRule
	log       logger.Logger
}

func NewPipeline(validator FieldValidator, spam SpamFilter, rateLimit RateLimitService, rule domain.RateLimitRule, log logger.Logger) Pipeline {
	return &pipeline{
		validator: validator,
		spam:      spam,
		rateLimit: rateLimit,
		rule:      rule,
		log:       log,
	}
}

func (p *pipeline) Run(ctx context.Context, session domain.FormSession, attempt domain.SubmissionAttempt) (*domain.Rejection, error) {
	values := attempt.Values.Trimmed()

	if errs := p.validator.ValidateAll(values); len(errs) > 0 {
		return p.reject(domain.StageValidation, domain.RejectValidationFailed, errs), nil
	}

	if IsTooFast(session.LoadedAt, attempt.At) {
		return p.reject(domain.StageTiming, domain.RejectTooFast, nil), nil
	}

	if offending := p.spam.Offending(values); len(offending) > 0 {
		fields := make([]domain.FieldError, 0, len(offending))
		for _, id := range offending {
			fields = append(fields, domain.FieldError{Field: id, Message: spamMessage(id)})
		}
		return p.reject(domain.StageKeyword, domain.RejectSpamDetected, fields), nil
	}

	key := domain.RateLimitKey(domain.RateLimitScopeSession, session.ID)
	decision, err := p.rateLimit.Check(ctx, key, p.rule)
	if err != nil {
		return nil, fmt.Errorf("rate limit stage: %w", err)
	}
	if decision.Limited {
		return p.reject(domain.StageRateLimit, domain.RejectRateLimited, nil), nil
	}

	return nil, nil
}

func (p *pipeline) reject(stage domain.Stage, kind domain.RejectionKind, fields []domain.FieldError) *domain.Rejection {
	recordRejection(stage)
	p.log.Info("Submission rejected", "stage", stage, "kind", kind, "fields", len(fields))
	return &domain.Rejection{Stage: stage, Kind: kind, Fields: fields}
}

// IsTooFast: прошло меньше MinFillTime с момента загрузки формы
func IsTooFast(loadedAt, at time.Time) bool {
	return at.Sub(loadedAt) < MinFillTime
}

func spamMessage(field domain.FieldID) string {
	if field == domain.FieldSubject {
		return "Subject contains blocked spam keywords."
	}
	return "Message contains blocked spam keywords."
}
