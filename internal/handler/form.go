package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"contact_form/internal/domain"
	"contact_form/internal/middleware"
	"contact_form/internal/service"
	apperrors "contact_form/pkg/errors"
	"contact_form/pkg/logger"
)

type FormHandler struct {
	sessions service.FormSessionService
	log      logger.Logger
}

func NewFormHandler(sessions service.FormSessionService, log logger.Logger) *FormHandler {
	return &FormHandler{
		sessions: sessions,
		log:      log,
	}
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	LoadedAt  time.Time `json:"loaded_at"`
	Greeting  string    `json:"greeting"`
}

// Session открывает новый жизненный цикл формы. Момент ответа считается
// моментом загрузки формы для проверки времени заполнения.
func (h *FormHandler) Session(c *gin.Context) {
	ticket, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to create form session", "error", err)
		_ = c.Error(apperrors.ErrInternalServer)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		SessionID: ticket.Session.ID,
		Token:     ticket.Token,
		LoadedAt:  ticket.Session.LoadedAt,
		Greeting:  ticket.Greeting,
	})
}

type ValidateRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
	Event string `json:"event"`
}

const (
	eventInput = "input"
	eventBlur  = "blur"
)

func (h *FormHandler) Validate(c *gin.Context) {
	coordinator, ok := middleware.Coordinator(c)
	if !ok {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err))
		return
	}

	field := domain.FieldID(req.Field)
	var (
		feedback service.FieldFeedback
		err      error
	)
	switch req.Event {
	case "", eventInput:
		feedback, err = coordinator.OnInput(field, req.Value, nil)
	case eventBlur:
		feedback, err = coordinator.OnBlur(field, req.Value, nil)
	default:
		_ = c.Error(apperrors.NewAPIError("event must be input or blur", http.StatusBadRequest))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, feedback)
}

type SubmitRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (r SubmitRequest) values() domain.FieldValues {
	return domain.FieldValues{
		domain.FieldName:    r.Name,
		domain.FieldEmail:   r.Email,
		domain.FieldSubject: r.Subject,
		domain.FieldMessage: r.Message,
	}
}

type SubmitResponse struct {
	State        service.State        `json:"state"`
	Stage        domain.Stage         `json:"stage,omitempty"`
	Kind         domain.RejectionKind `json:"kind,omitempty"`
	Fields       []domain.FieldError  `json:"fields,omitempty"`
	Effects      []domain.UIEffect    `json:"effects"`
	ResetAfterMs int64                `json:"reset_after_ms,omitempty"`
}

func (h *FormHandler) Submit(c *gin.Context) {
	coordinator, ok := middleware.Coordinator(c)
	if !ok {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err))
		return
	}

	recorder := newEffectRecorder()
	outcome, err := coordinator.OnSubmit(c.Request.Context(), req.values(), recorder.surface())
	effects := recorder.seal()
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := SubmitResponse{
		State:        outcome.State,
		Effects:      effects,
		ResetAfterMs: outcome.ResetAfter.Milliseconds(),
	}
	if r := outcome.Rejection; r != nil {
		resp.Stage = r.Stage
		resp.Kind = r.Kind
		resp.Fields = r.Fields
	}

	c.JSON(submitStatus(outcome), resp)
}

func submitStatus(outcome service.Outcome) int {
	switch outcome.State {
	case service.StateSucceeded:
		return http.StatusOK
	case service.StateFailed:
		if outcome.Err != nil {
			return apperrors.HTTPStatusFromError(outcome.Err)
		}
		return http.StatusBadGateway
	}

	if outcome.Rejection == nil {
		return http.StatusOK
	}
	switch outcome.Rejection.Kind {
	case domain.RejectTooFast:
		return http.StatusTooEarly
	case domain.RejectRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusUnprocessableEntity
	}
}
