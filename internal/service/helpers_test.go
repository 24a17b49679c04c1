package service

import (
	"context"
	"sync"
	"time"

	"contact_form/internal/domain"
	"contact_form/internal/repository"
	"contact_form/pkg/clock/clocktest"
	"contact_form/pkg/logger"
)

var testStart = time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)

// recordingUI реализует все области страницы и запоминает вызовы
type recordingUI struct {
	mu      sync.Mutex
	events  []string
	states  map[domain.FieldID]domain.FieldState
	errors  map[domain.FieldID]string
	summary []domain.FieldError
	toasts  map[string]domain.Notification
	shown   []domain.Notification
	busy    bool
	hidden  bool
	banner  bool
}

func newRecordingUI() *recordingUI {
	return &recordingUI{
		states: make(map[domain.FieldID]domain.FieldState),
		errors: make(map[domain.FieldID]string),
		toasts: make(map[string]domain.Notification),
	}
}

func (u *recordingUI) surface() *Surface {
	return &Surface{Fields: u, Summary: u, Submit: u, Banner: u, Form: u, Toasts: u}
}

func (u *recordingUI) record(e string) { u.events = append(u.events, e) }

func (u *recordingUI) SetFieldState(field domain.FieldID, state domain.FieldState, message string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.states[field] = state
	u.errors[field] = message
}

func (u *recordingUI) Shake(field domain.FieldID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("shake:" + string(field))
}

func (u *recordingUI) ShowSummary(errs []domain.FieldError) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.summary = errs
	u.record("summary:show")
}

func (u *recordingUI) HideSummary() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.summary = nil
	u.record("summary:hide")
}

func (u *recordingUI) SetBusy(busy bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.busy = busy
	if busy {
		u.record("submit:busy")
	} else {
		u.record("submit:idle")
	}
}

func (u *recordingUI) FlashError() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("submit:flash")
}

func (u *recordingUI) ShowBanner() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.banner = true
	u.record("banner:show")
}

func (u *recordingUI) HideBanner() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.banner = false
	u.record("banner:hide")
}

func (u *recordingUI) HideForm() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hidden = true
	u.record("form:hide")
}

func (u *recordingUI) ResetForm() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hidden = false
	u.record("form:reset")
}

func (u *recordingUI) ShowToast(n domain.Notification) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.toasts[n.ID] = n
	u.shown = append(u.shown, n)
}

func (u *recordingUI) RemoveToast(id string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.toasts, id)
}

func (u *recordingUI) has(event string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, e := range u.events {
		if e == event {
			return true
		}
	}
	return false
}

func (u *recordingUI) lastToast() domain.Notification {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.shown) == 0 {
		return domain.Notification{}
	}
	return u.shown[len(u.shown)-1]
}

// fakeRelay: подменный почтовый relay
type fakeRelay struct {
	mu       sync.Mutex
	calls    []domain.SubmissionPayload
	err      error
	panicMsg string
	block    chan struct{}
	started  chan struct{}
}

func (r *fakeRelay) Send(ctx context.Context, payload domain.SubmissionPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.calls = append(r.calls, payload)
	block, started := r.block, r.started
	r.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	return r.err
}

func (r *fakeRelay) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// failingRateRepo всегда возвращает ошибку хранилища
type failingRateRepo struct{ err error }

func (f failingRateRepo) CheckAndRecord(context.Context, string, time.Time, domain.RateLimitRule) (domain.RateDecision, error) {
	return domain.RateDecision{}, f.err
}

func (f failingRateRepo) Reset(context.Context, string) error { return f.err }

type testEnv struct {
	clock     *clocktest.Manual
	relay     *fakeRelay
	sink      *RecordingSink
	presenter Presenter
	pipeline  Pipeline
	deps      CoordinatorDeps
	rateLimit RateLimitService
}

func newTestEnv(repo repository.RateWindowRepository) *testEnv {
	if repo == nil {
		repo = repository.NewMemoryRateWindowRepository()
	}
	log := logger.Nop()
	clock := clocktest.NewManual(testStart)
	rateLimit := NewRateLimitService(repo, clock, log)
	validator := NewFieldValidator(nil)
	pipeline := NewPipeline(validator, NewSpamFilter(nil), rateLimit, domain.SubmissionRateRule, log)
	presenter := NewPresenter(clock, log)
	relay := &fakeRelay{}
	sink := &RecordingSink{}

	return &testEnv{
		clock:     clock,
		relay:     relay,
		sink:      sink,
		presenter: presenter,
		pipeline:  pipeline,
		rateLimit: rateLimit,
		deps: CoordinatorDeps{
			Pipeline:  pipeline,
			Validator: validator,
			Relay:     relay,
			Sink:      sink,
			Presenter: presenter,
			Clock:     clock,
			RateRule:  domain.SubmissionRateRule,
			Log:       log,
		},
	}
}

func (e *testEnv) session(id string) domain.FormSession {
	return domain.FormSession{ID: id, LoadedAt: e.clock.Now()}
}

func validValues() domain.FieldValues {
	return domain.FieldValues{
		domain.FieldName:    "Jane Doe",
		domain.FieldEmail:   "jane@example.com",
		domain.FieldSubject: "Hello",
		domain.FieldMessage: "This is a normal length test message.",
	}
}
