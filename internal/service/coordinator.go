package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"contact_form/internal/domain"
	"contact_form/pkg/clock"
	apperrors "contact_form/pkg/errors"
	"contact_form/pkg/logger"
	"contact_form/pkg/redact"
)

// ResetDelay: через сколько форма возвращается в исходное состояние после успеха
const ResetDelay = 6 * time.Second

type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateRejected   State = "rejected"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Outcome: результат одного действия отправки
type Outcome struct {
	State      State                     `json:"state"`
	Rejection  *domain.Rejection         `json:"rejection,omitempty"`
	Payload    *domain.SubmissionPayload `json:"payload,omitempty"`
	ResetAfter time.Duration             `json:"reset_after,omitempty"`
	Err        error                     `json:"-"`
}

// FieldFeedback: реакция на ввод в одно поле
type FieldFeedback struct {
	Field   domain.FieldID    `json:"field"`
	OK      bool              `json:"ok"`
	State   domain.FieldState `json:"state"`
	Message string            `json:"message,omitempty"`
}

// CoordinatorDeps: общие зависимости координаторов всех форм
type CoordinatorDeps struct {
	Pipeline  Pipeline
	Validator FieldValidator
	Relay     MailRelay
	Sink      RelaySink
	Presenter Presenter
	Clock     clock.Clock
	RateRule  domain.RateLimitRule
	Log       logger.Logger
}

// Coordinator ведет одну форму: проверка, фильтр, отправка и переходы
// интерфейса. Экземпляр создается на каждый жизненный цикл формы.
type Coordinator struct {
	session domain.FormSession
	deps    CoordinatorDeps
	log     logger.Logger

	mu          sync.Mutex
	state       State
	fieldStates map[domain.FieldID]domain.FieldState
	resetTimer  clock.Timer
}

func NewCoordinator(session domain.FormSession, deps CoordinatorDeps) *Coordinator {
	if deps.RateRule.Limit == 0 {
		deps.RateRule = domain.SubmissionRateRule
	}
	return &Coordinator{
		session:     session,
		deps:        deps,
		log:         deps.Log.With("session_id", session.ID),
		state:       StateIdle,
		fieldStates: make(map[domain.FieldID]domain.FieldState),
	}
}

func (c *Coordinator) Session() domain.FormSession { return c.session }

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) FieldState(field domain.FieldID) domain.FieldState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.fieldStates[field]; ok {
		return st
	}
	return domain.FieldStateNeutral
}

// OnInput: непустое значение проверяется сразу, пустое сбрасывает поле
func (c *Coordinator) OnInput(field domain.FieldID, value string, ui *Surface) (FieldFeedback, error) {
	if _, ok := domain.ParseFieldID(string(field)); !ok {
		return FieldFeedback{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownField, field)
	}

	if strings.TrimSpace(value) == "" {
		c.applyFieldState(ui, field, domain.FieldStateNeutral, "")
		return FieldFeedback{Field: field, OK: false, State: domain.FieldStateNeutral}, nil
	}
	return c.validateField(field, value, ui), nil
}

// OnBlur проверяет поле, если в нем что-то введено или оно уже в ошибке
func (c *Coordinator) OnBlur(field domain.FieldID, value string, ui *Surface) (FieldFeedback, error) {
	if _, ok := domain.ParseFieldID(string(field)); !ok {
		return FieldFeedback{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownField, field)
	}

	current := c.FieldState(field)
	if strings.TrimSpace(value) == "" && current != domain.FieldStateError {
		return FieldFeedback{Field: field, OK: current == domain.FieldStateSuccess, State: current}, nil
	}
	return c.validateField(field, value, ui), nil
}

func (c *Coordinator) validateField(field domain.FieldID, value string, ui *Surface) FieldFeedback {
	res := c.deps.Validator.Validate(field, value)
	state := StateFor(res, true)
	c.applyFieldState(ui, field, state, res.Message)
	return FieldFeedback{Field: field, OK: res.OK, State: state, Message: res.Message}
}

// OnSubmit проводит попытку через конвейер и, если он пройден, отправляет
// форму. Сетевые ошибки не выходят наружу: они становятся StateFailed.
// Единственная возвращаемая ошибка ErrSubmissionInFlight: пока предыдущее
// действие не вернулось в Idle, новое не начинается.
func (c *Coordinator) OnSubmit(ctx context.Context, values domain.FieldValues, ui *Surface) (Outcome, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return Outcome{}, apperrors.ErrSubmissionInFlight
	}
	c.state = StateValidating
	c.mu.Unlock()

	trimmed := values.Trimmed()
	attempt := domain.SubmissionAttempt{At: c.deps.Clock.Now(), Values: trimmed}

	rejection, err := c.deps.Pipeline.Run(ctx, c.session, attempt)
	if err != nil {
		c.log.Error("Submission pipeline failed", "error", err)
		c.presentFailure(ui)
		c.setState(StateIdle)
		return Outcome{State: StateFailed, Err: err}, nil
	}

	c.applyPipelineFieldStates(ui, rejection)

	if rejection != nil {
		c.presentRejection(ui, rejection)
		c.setState(StateIdle)
		return Outcome{State: StateRejected, Rejection: rejection}, nil
	}

	ui.hideSummary()
	return c.submit(ctx, trimmed, attempt.At, ui), nil
}

func (c *Coordinator) submit(ctx context.Context, values domain.FieldValues, at time.Time, ui *Surface) Outcome {
	c.setState(StateSubmitting)
	payload := domain.NewSubmissionPayload(values, at)

	ui.setBusy(true)
	defer ui.setBusy(false)

	// Запрос не отменяется вместе с вызывающим: ушедший клиент не прерывает
	// отправку, ограничивает ее только таймаут клиента relay.
	start := c.deps.Clock.Now()
	err := c.sendSafely(context.WithoutCancel(ctx), payload)
	elapsed := c.deps.Clock.Now().Sub(start).Seconds()

	if err != nil {
		recordSubmission("failed", elapsed)
		c.log.Warn("Mail relay failed", "error", err, "email", redact.Email(payload.Email))
		c.presentFailure(ui)
		c.setState(StateIdle)
		return Outcome{State: StateFailed, Err: err}
	}

	recordSubmission("succeeded", elapsed)
	c.log.Info("Submission delivered to mail relay", "email", redact.Email(payload.Email), "subject", payload.Subject)

	ui.hideForm()
	ui.showBanner()
	c.deps.Presenter.Present(ui.toasts(), domain.NotificationSuccess,
		"Message sent!", "I'll get back to you as soon as possible.", 5000*time.Millisecond)

	if c.deps.Sink != nil {
		c.deps.Sink.Publish(domain.NewSubmissionMessage(c.session.ID, payload))
	}

	c.scheduleReset(ui)
	c.setState(StateIdle)
	return Outcome{State: StateSucceeded, Payload: &payload, ResetAfter: ResetDelay}
}

// sendSafely превращает панику транспорта в ошибку
func (c *Coordinator) sendSafely(ctx context.Context, payload domain.SubmissionPayload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: relay panic: %v", apperrors.ErrRelayUnavailable, r)
		}
	}()
	return c.deps.Relay.Send(ctx, payload)
}

func (c *Coordinator) scheduleReset(ui *Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resetTimer != nil {
		c.resetTimer.Stop()
	}
	c.resetTimer = c.deps.Clock.AfterFunc(ResetDelay, func() {
		ui.resetForm()
		ui.hideBanner()
		for _, id := range domain.RequiredFields {
			c.applyFieldState(ui, id, domain.FieldStateNeutral, "")
		}
	})
}

// applyPipelineFieldStates: этап проверки прошел по всем полям, поэтому
// каждое поле без ошибки получает success.
func (c *Coordinator) applyPipelineFieldStates(ui *Surface, rejection *domain.Rejection) {
	failed := make(map[domain.FieldID]string)
	if rejection != nil && rejection.Stage == domain.StageValidation {
		for _, fe := range rejection.Fields {
			failed[fe.Field] = fe.Message
		}
	}
	for _, id := range domain.RequiredFields {
		if msg, ok := failed[id]; ok {
			c.applyFieldState(ui, id, domain.FieldStateError, msg)
			continue
		}
		c.applyFieldState(ui, id, domain.FieldStateSuccess, "")
	}
}

func (c *Coordinator) presentRejection(ui *Surface, r *domain.Rejection) {
	toasts := ui.toasts()

	switch r.Kind {
	case domain.RejectValidationFailed:
		msgs := make([]string, 0, len(r.Fields))
		for _, fe := range r.Fields {
			ui.shake(fe.Field)
			msgs = append(msgs, fe.Message)
		}
		ui.showSummary(r.Fields)
		title := fmt.Sprintf("%d field needs attention", len(r.Fields))
		if len(r.Fields) > 1 {
			title = fmt.Sprintf("%d fields need attention", len(r.Fields))
		}
		c.deps.Presenter.Present(toasts, domain.NotificationError, title, strings.Join(msgs, " • "), 6500*time.Millisecond)
		ui.flashSubmitError()

	case domain.RejectTooFast:
		ui.hideSummary()
		c.deps.Presenter.Present(toasts, domain.NotificationWarning, "Submission too fast",
			"Your message was submitted in under 2 seconds, which looks automated. Please wait a moment and try again.",
			7000*time.Millisecond)
		ui.shake(domain.FieldMessage)

	case domain.RejectSpamDetected:
		ui.hideSummary()
		c.deps.Presenter.Present(toasts, domain.NotificationWarning, "Message blocked",
			"Your message contains keywords commonly associated with spam. Please revise and try again.",
			7000*time.Millisecond)
		for _, fe := range r.Fields {
			ui.shake(fe.Field)
			c.applyFieldState(ui, fe.Field, domain.FieldStateError, fe.Message)
		}

	case domain.RejectRateLimited:
		ui.hideSummary()
		c.deps.Presenter.Present(toasts, domain.NotificationWarning, "Too many submissions",
			fmt.Sprintf("You've submitted this form %d times in the last minute. Please wait before trying again.", c.deps.RateRule.Limit),
			8000*time.Millisecond)
	}
}

func (c *Coordinator) presentFailure(ui *Surface) {
	c.deps.Presenter.Present(ui.toasts(), domain.NotificationError, "Send failed",
		"Could not deliver your message. Please try again or email me directly.", 7000*time.Millisecond)
}

func (c *Coordinator) applyFieldState(ui *Surface, field domain.FieldID, state domain.FieldState, message string) {
	c.mu.Lock()
	c.fieldStates[field] = state
	c.mu.Unlock()
	ui.setFieldState(field, state, message)
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
