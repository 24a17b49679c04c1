package domain

import (
	"strings"
	"time"
)

// FieldValues: значения полей формы
type FieldValues map[FieldID]string

// Trimmed возвращает копию с обрезанными пробелами
func (v FieldValues) Trimmed() FieldValues {
	out := make(FieldValues, len(v))
	for k, val := range v {
		out[k] = strings.TrimSpace(val)
	}
	return out
}

type SubmissionAttempt struct {
	At     time.Time
	Values FieldValues
}

// SubmissionPayload уходит в почтовый relay и в канал Relay
type SubmissionPayload struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// TimestampLayout: формат отметки времени в payload
const TimestampLayout = "2006-01-02 15:04:05"

func NewSubmissionPayload(values FieldValues, at time.Time) SubmissionPayload {
	return SubmissionPayload{
		Name:      values[FieldName],
		Email:     values[FieldEmail],
		Subject:   values[FieldSubject],
		Message:   values[FieldMessage],
		Timestamp: at.Format(TimestampLayout),
	}
}

// FormSession: жизненный цикл одной формы; LoadedAt фиксируется один раз
type FormSession struct {
	ID       string    `json:"session_id"`
	LoadedAt time.Time `json:"loaded_at"`
}
