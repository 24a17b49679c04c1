package domain

import (
	"fmt"
	"time"
)

// Greeting: приветствие по часу суток
func Greeting(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Good Morning! ☀️"
	case hour >= 12 && hour < 17:
		return "Good Afternoon! 🌤️"
	case hour >= 17 && hour < 21:
		return "Good Evening! 🌆"
	default:
		return "Good Night! 🌙"
	}
}

// FormatClock форматирует время как "hh:mm:ss AM"
func FormatClock(t time.Time) string {
	h := t.Hour()
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	h = h % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%02d:%02d:%02d %s", h, t.Minute(), t.Second(), ampm)
}
