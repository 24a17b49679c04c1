package domain

import (
	"encoding/json"
)

type RelayMessageType string

const (
	RelayFormSubmission RelayMessageType = "formSubmission"
	RelayClockTick      RelayMessageType = "clockTick"
)

// RelayMessage: сообщение между контекстами; Type: дискриминант.
// SessionID не передается по сети: он ограничивает доставку подписчиками
// той же формы. Пустой SessionID доставляется всем.
type RelayMessage struct {
	Type      RelayMessageType   `json:"type"`
	Payload   *SubmissionPayload `json:"payload,omitempty"`
	Time      string             `json:"time,omitempty"`
	SessionID string             `json:"-"`
}

func NewSubmissionMessage(sessionID string, p SubmissionPayload) RelayMessage {
	return RelayMessage{Type: RelayFormSubmission, Payload: &p, SessionID: sessionID}
}

func NewClockTickMessage(formatted string) RelayMessage {
	return RelayMessage{Type: RelayClockTick, Time: formatted}
}

// DecodeRelayMessage разбирает входящее сообщение. Неизвестные и
// некорректные сообщения возвращают ok == false.
func DecodeRelayMessage(raw []byte) (RelayMessage, bool) {
	var msg RelayMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return RelayMessage{}, false
	}
	switch msg.Type {
	case RelayFormSubmission:
		if msg.Payload == nil {
			return RelayMessage{}, false
		}
	case RelayClockTick:
		if msg.Time == "" {
			return RelayMessage{}, false
		}
	default:
		return RelayMessage{}, false
	}
	return msg, true
}
