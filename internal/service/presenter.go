package service

import (
	"html"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"contact_form/internal/domain"
	"contact_form/pkg/clock"
	"contact_form/pkg/logger"
)

// DefaultToastDuration: время показа по умолчанию
const DefaultToastDuration = 5500 * time.Millisecond

// Presenter показывает уведомления. Уведомление закрывается по Dismiss или
// по таймеру, что наступит раньше. Одинаковые уведомления не схлопываются.
type Presenter interface {
	Present(target ToastContainer, kind domain.NotificationKind, title, detail string, duration time.Duration) domain.Notification
	Dismiss(id string) bool
	Active() int
}

type activeToast struct {
	target ToastContainer
	timer  clock.Timer
}

type presenter struct {
	clock  clock.Clock
	policy *bluemonday.Policy
	log    logger.Logger

	mu     sync.Mutex
	active map[string]*activeToast
}

func NewPresenter(clock clock.Clock, log logger.Logger) Presenter {
	return &presenter{
		clock:  clock,
		policy: bluemonday.StrictPolicy(),
		log:    log,
		active: make(map[string]*activeToast),
	}
}

// Present возвращает уведомление с пустым ID, если контейнера нет.
// Title и Detail приводятся к простому тексту: разметка удаляется, сущности
// раскодируются. Экранирует текст тот, кто вставляет его в HTML.
func (p *presenter) Present(target ToastContainer, kind domain.NotificationKind, title, detail string, duration time.Duration) domain.Notification {
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	n := domain.Notification{
		Kind:     kind,
		Title:    p.plainText(title),
		Detail:   p.plainText(detail),
		Duration: duration,
	}
	recordNotification(kind)

	if target == nil {
		p.log.Debug("Toast container missing, notification skipped", "kind", kind, "title", n.Title)
		return n
	}

	n.ID = uuid.NewString()

	p.mu.Lock()
	toast := &activeToast{target: target}
	p.active[n.ID] = toast
	p.mu.Unlock()

	target.ShowToast(n)

	id := n.ID
	timer := p.clock.AfterFunc(duration, func() { p.Dismiss(id) })
	p.mu.Lock()
	if _, still := p.active[id]; still {
		toast.timer = timer
	} else {
		timer.Stop()
	}
	p.mu.Unlock()

	return n
}

func (p *presenter) plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(p.policy.Sanitize(s)))
}

func (p *presenter) Dismiss(id string) bool {
	p.mu.Lock()
	toast, ok := p.active[id]
	if ok {
		delete(p.active, id)
	}
	p.mu.Unlock()
	if !ok {
		return false
	}

	if toast.timer != nil {
		toast.timer.Stop()
	}
	toast.target.RemoveToast(id)
	return true
}

func (p *presenter) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}
