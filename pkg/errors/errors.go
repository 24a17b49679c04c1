package errors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrBadRequest         = errors.New("bad request")
	ErrInternalServer     = errors.New("internal server error")
	ErrInvalidToken       = errors.New("invalid form token")
	ErrTokenExpired       = errors.New("form token expired")
	ErrUnknownField       = errors.New("unknown field")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrRelayUnavailable   = errors.New("mail relay unavailable")
)

type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

func HTTPStatusFromError(err error) int {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, ErrSubmissionInFlight):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrRelayUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
