package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"contact_form/internal/domain"
	"contact_form/pkg/clock"
	"contact_form/pkg/logger"
	"contact_form/pkg/redact"
)

// RelaySink: односторонний канал публикации. Доставка не гарантируется.
type RelaySink interface {
	Publish(msg domain.RelayMessage)
}

// Subscription: очередь сообщений одного получателя. Подписка формы
// получает сообщения своей сессии и общие, подписка оператора получает все.
type Subscription struct {
	ch      chan []byte
	session string
	all     bool
}

func (s *Subscription) C() <-chan []byte { return s.ch }

func (s *Subscription) accepts(msg domain.RelayMessage) bool {
	return msg.SessionID == "" || s.all || s.session == msg.SessionID
}

// RelayHub рассылает сообщения подписчикам. Медленный подписчик теряет
// сообщения, порядок для каждого подписчика сохраняется.
type RelayHub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	log    logger.Logger
}

func NewRelayHub(buffer int, log logger.Logger) *RelayHub {
	if buffer <= 0 {
		buffer = 16
	}
	return &RelayHub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// SubscribeSession подписывает страницу одной формы
func (h *RelayHub) SubscribeSession(sessionID string) *Subscription {
	return h.subscribe(&Subscription{ch: make(chan []byte, h.buffer), session: sessionID})
}

// SubscribeAll подписывает оператора на сообщения всех форм
func (h *RelayHub) SubscribeAll() *Subscription {
	return h.subscribe(&Subscription{ch: make(chan []byte, h.buffer), all: true})
}

func (h *RelayHub) subscribe(sub *Subscription) *Subscription {
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *RelayHub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.mu.Unlock()
}

func (h *RelayHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *RelayHub) Publish(msg domain.RelayMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("Failed to marshal relay message", "error", err, "type", msg.Type)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if !sub.accepts(msg) {
			continue
		}
		select {
		case sub.ch <- data:
		default:
			recordRelayDrop()
		}
	}
}

// RecordingSink запоминает опубликованные сообщения
type RecordingSink struct {
	mu       sync.Mutex
	messages []domain.RelayMessage
}

func (s *RecordingSink) Publish(msg domain.RelayMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

func (s *RecordingSink) Messages() []domain.RelayMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RelayMessage(nil), s.messages...)
}

// ClockBroadcaster периодически публикует clockTick
type ClockBroadcaster struct {
	sink  RelaySink
	clock clock.Clock
}

func NewClockBroadcaster(sink RelaySink, clock clock.Clock) *ClockBroadcaster {
	return &ClockBroadcaster{sink: sink, clock: clock}
}

// Tick публикует текущее время и возвращает отформатированную строку
func (b *ClockBroadcaster) Tick() string {
	formatted := domain.FormatClock(b.clock.Now())
	b.sink.Publish(domain.NewClockTickMessage(formatted))
	return formatted
}

// Run публикует первый тик сразу, затем с интервалом, до отмены ctx
func (b *ClockBroadcaster) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.Tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Tick()
		}
	}
}

// ClockDisplay: область, в которой показывается время
type ClockDisplay interface {
	SetTime(formatted string)
}

// RelayListener: принимающая сторона канала
type RelayListener struct {
	display ClockDisplay
	log     logger.Logger
}

func NewRelayListener(display ClockDisplay, log logger.Logger) *RelayListener {
	return &RelayListener{display: display, log: log}
}

// Handle возвращает false для нераспознанных сообщений
func (l *RelayListener) Handle(raw []byte) bool {
	msg, ok := domain.DecodeRelayMessage(raw)
	if !ok {
		return false
	}

	switch msg.Type {
	case domain.RelayClockTick:
		if l.display != nil {
			l.display.SetTime(msg.Time)
		}
	case domain.RelayFormSubmission:
		p := msg.Payload
		l.log.Info("Contact form submission",
			"name", p.Name,
			"email", redact.Email(p.Email),
			"subject", p.Subject,
			"message_length", len(p.Message),
			"timestamp", p.Timestamp,
		)
	}
	return true
}
