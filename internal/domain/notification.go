package domain

import (
	"encoding/json"
	"time"
)

type NotificationKind string

const (
	NotificationError   NotificationKind = "error"
	NotificationWarning NotificationKind = "warning"
	NotificationSuccess NotificationKind = "success"
)

type Notification struct {
	ID       string           `json:"id"`
	Kind     NotificationKind `json:"kind"`
	Title    string           `json:"title"`
	Detail   string           `json:"detail"`
	Duration time.Duration    `json:"-"`
}

// MarshalJSON отдает длительность в миллисекундах
func (n Notification) MarshalJSON() ([]byte, error) {
	type plain Notification
	return json.Marshal(struct {
		plain
		DurationMs int64 `json:"duration_ms"`
	}{plain: plain(n), DurationMs: n.Duration.Milliseconds()})
}
