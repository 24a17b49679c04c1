package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"contact_form/internal/config"
	"contact_form/internal/domain"
	"contact_form/pkg/clock"
	apperrors "contact_form/pkg/errors"
	"contact_form/pkg/jwt"
	"contact_form/pkg/logger"
)

// SessionTicket выдается странице при загрузке формы
type SessionTicket struct {
	Session  domain.FormSession `json:"session"`
	Token    string             `json:"token"`
	Greeting string             `json:"greeting"`
}

type FormSessionService interface {
	Create(ctx context.Context) (*SessionTicket, error)
	// Resolve находит координатор по токену. Если процесс перезапускался,
	// координатор восстанавливается из claims токена.
	Resolve(ctx context.Context, token string) (*Coordinator, error)
	Active() int
}

type sessionEntry struct {
	coordinator *Coordinator
	lastSeen    time.Time
}

type formSessionService struct {
	deps      CoordinatorDeps
	rateLimit RateLimitService
	tokenCfg  config.FormTokenConfig
	idleTTL   time.Duration
	clock     clock.Clock
	log       logger.Logger

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func NewFormSessionService(deps CoordinatorDeps, rateLimit RateLimitService, tokenCfg config.FormTokenConfig, idleTTL time.Duration, log logger.Logger) FormSessionService {
	if idleTTL < deps.RateRule.Window {
		idleTTL = deps.RateRule.Window
	}
	return &formSessionService{
		deps:      deps,
		rateLimit: rateLimit,
		tokenCfg:  tokenCfg,
		idleTTL:   idleTTL,
		clock:     deps.Clock,
		log:       log,
		sessions:  make(map[string]*sessionEntry),
	}
}

func (s *formSessionService) Create(ctx context.Context) (*SessionTicket, error) {
	now := s.clock.Now()
	session := domain.FormSession{ID: uuid.NewString(), LoadedAt: now}

	token, err := jwt.Sign(s.tokenCfg.Secret, s.tokenCfg.Issuer, session.ID, session.LoadedAt, s.tokenCfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue form token: %w", err)
	}

	s.sweep(ctx, now)

	s.mu.Lock()
	s.sessions[session.ID] = &sessionEntry{
		coordinator: NewCoordinator(session, s.deps),
		lastSeen:    now,
	}
	s.mu.Unlock()

	s.log.Debug("Form session created", "session_id", session.ID)

	return &SessionTicket{
		Session:  session,
		Token:    token,
		Greeting: domain.Greeting(now.Hour()),
	}, nil
}

func (s *formSessionService) Resolve(_ context.Context, token string) (*Coordinator, error) {
	now := s.clock.Now()
	claims, err := jwt.Parse(s.tokenCfg.Secret, s.tokenCfg.Issuer, token, now)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[claims.SessionID]
	if !ok {
		session := domain.FormSession{ID: claims.SessionID, LoadedAt: claims.LoadedAt()}
		entry = &sessionEntry{coordinator: NewCoordinator(session, s.deps)}
		s.sessions[session.ID] = entry
		s.log.Debug("Form session restored from token", "session_id", session.ID)
	}
	entry.lastSeen = now
	return entry.coordinator, nil
}

func (s *formSessionService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweep удаляет простаивающие сессии. Простой дольше окна лимита значит,
// что все записи окна уже устарели, поэтому окно можно сбросить.
func (s *formSessionService) sweep(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var expired []string
	for id, entry := range s.sessions {
		if now.Sub(entry.lastSeen) > s.idleTTL && entry.coordinator.State() == StateIdle {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		key := domain.RateLimitKey(domain.RateLimitScopeSession, id)
		if err := s.rateLimit.Reset(ctx, key); err != nil {
			s.log.Warn("Failed to reset rate window for expired session", "error", err, "session_id", id)
		}
	}
	if len(expired) > 0 {
		s.log.Debug("Expired form sessions swept", "count", len(expired))
	}
}
