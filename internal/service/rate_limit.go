package service

import (
	"context"

	"contact_form/internal/domain"
	"contact_form/internal/repository"
	"contact_form/pkg/clock"
	"contact_form/pkg/logger"
)

type RateLimitService interface {
	// Check не идемпотентен: разрешенная проверка записывается в окно
	Check(ctx context.Context, key string, rule domain.RateLimitRule) (domain.RateDecision, error)
	Reset(ctx context.Context, key string) error
}

type rateLimitService struct {
	rateWindowRepo repository.RateWindowRepository
	clock          clock.Clock
	log            logger.Logger
}

func NewRateLimitService(rateWindowRepo repository.RateWindowRepository, clock clock.Clock, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateWindowRepo: rateWindowRepo,
		clock:          clock,
		log:            log,
	}
}

func (s *rateLimitService) Check(ctx context.Context, key string, rule domain.RateLimitRule) (domain.RateDecision, error) {
	decision, err := s.rateWindowRepo.CheckAndRecord(ctx, key, s.clock.Now(), rule)
	if err != nil {
		return domain.RateDecision{}, err
	}
	if decision.Limited {
		s.log.Debug("Rate window exhausted", "key", key, "count", decision.Count)
	}
	return decision, nil
}

func (s *rateLimitService) Reset(ctx context.Context, key string) error {
	return s.rateWindowRepo.Reset(ctx, key)
}
