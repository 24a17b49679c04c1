package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"contact_form/internal/domain"
	"contact_form/internal/service"
)

var (
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
	banner = color.New(color.FgGreen, color.Bold)
)

// terminalUI выводит обратную связь формы в терминал. Таймеры уведомлений
// и сброса срабатывают в других горутинах, поэтому вывод под мьютексом.
type terminalUI struct {
	mu  sync.Mutex
	out io.Writer
}

func newTerminalUI(out io.Writer) *terminalUI {
	return &terminalUI{out: out}
}

func (t *terminalUI) surface() *service.Surface {
	return &service.Surface{
		Fields:  t,
		Summary: t,
		Submit:  t,
		Banner:  t,
		Form:    t,
		Toasts:  t,
	}
}

func (t *terminalUI) println(c *color.Color, format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = c.Fprintf(t.out, format+"\n", args...)
}

func (t *terminalUI) SetFieldState(field domain.FieldID, state domain.FieldState, message string) {
	switch state {
	case domain.FieldStateError:
		t.println(red, "  ✗ %s: %s", field, message)
	case domain.FieldStateSuccess:
		t.println(dim, "  ✓ %s", field)
	}
}

func (t *terminalUI) Shake(field domain.FieldID) {
	t.println(yellow, "  ↯ check %s", field)
}

func (t *terminalUI) ShowSummary(errs []domain.FieldError) {
	var b strings.Builder
	b.WriteString("Please fix the following:")
	for _, fe := range errs {
		b.WriteString("\n  • ")
		b.WriteString(fe.Message)
	}
	t.println(bold, "%s", b.String())
}

func (t *terminalUI) HideSummary() {}

func (t *terminalUI) SetBusy(busy bool) {
	if busy {
		t.println(cyan, "Sending...")
	}
}

func (t *terminalUI) FlashError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.out, "\a")
}

func (t *terminalUI) ShowBanner() {
	t.println(banner, "Thank you! Your message has been sent.")
}

func (t *terminalUI) HideBanner() {}

func (t *terminalUI) HideForm() {}

func (t *terminalUI) ResetForm() {
	t.println(dim, "Form reset.")
}

func (t *terminalUI) ShowToast(n domain.Notification) {
	c := cyan
	switch n.Kind {
	case domain.NotificationError:
		c = red
	case domain.NotificationWarning:
		c = yellow
	case domain.NotificationSuccess:
		c = green
	}
	if n.Detail == "" {
		t.println(c, "[%s]", n.Title)
		return
	}
	t.println(c, "[%s] %s", n.Title, n.Detail)
}

func (t *terminalUI) RemoveToast(string) {}

// SetTime показывает время из канала Relay
func (t *terminalUI) SetTime(formatted string) {
	t.println(dim, "🕒 %s", formatted)
}

// listenerSink доставляет сообщения Relay прямо в RelayListener того же
// процесса
type listenerSink struct {
	listener *service.RelayListener
}

func (s listenerSink) Publish(msg domain.RelayMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.listener.Handle(data)
}

func fieldLabel(rules domain.RuleSet, id domain.FieldID) string {
	if rule, ok := rules[id]; ok {
		return rule.Label
	}
	return string(id)
}

func describe(out service.Outcome) string {
	switch out.State {
	case service.StateRejected:
		return fmt.Sprintf("rejected at %s stage", out.Rejection.Stage)
	case service.StateFailed:
		return "delivery failed"
	default:
		return string(out.State)
	}
}
