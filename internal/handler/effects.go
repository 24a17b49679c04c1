package handler

import (
	"sync"

	"contact_form/internal/domain"
	"contact_form/internal/service"
)

// effectRecorder собирает изменения интерфейса за время одного запроса.
// После seal поздние изменения (таймеры сброса и скрытия уведомлений)
// отбрасываются: страница выполняет их сама по reset_after_ms и duration_ms.
type effectRecorder struct {
	mu      sync.Mutex
	effects []domain.UIEffect
	sealed  bool
}

func newEffectRecorder() *effectRecorder {
	return &effectRecorder{}
}

func (r *effectRecorder) surface() *service.Surface {
	return &service.Surface{
		Fields:  r,
		Summary: r,
		Submit:  r,
		Banner:  r,
		Form:    r,
		Toasts:  r,
	}
}

func (r *effectRecorder) add(e domain.UIEffect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sealed {
		r.effects = append(r.effects, e)
	}
}

// seal закрывает запись и возвращает накопленные изменения
func (r *effectRecorder) seal() []domain.UIEffect {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
	if r.effects == nil {
		return []domain.UIEffect{}
	}
	return r.effects
}

func (r *effectRecorder) SetFieldState(field domain.FieldID, state domain.FieldState, message string) {
	r.add(domain.UIEffect{Type: domain.EffectFieldState, Field: field, State: state, Message: message})
}

func (r *effectRecorder) Shake(field domain.FieldID) {
	r.add(domain.UIEffect{Type: domain.EffectShake, Field: field})
}

func (r *effectRecorder) ShowSummary(errs []domain.FieldError) {
	r.add(domain.UIEffect{Type: domain.EffectSummaryShow, Errors: errs})
}

func (r *effectRecorder) HideSummary() {
	r.add(domain.UIEffect{Type: domain.EffectSummaryHide})
}

func (r *effectRecorder) SetBusy(busy bool) {
	if busy {
		r.add(domain.UIEffect{Type: domain.EffectSubmitBusy})
		return
	}
	r.add(domain.UIEffect{Type: domain.EffectSubmitIdle})
}

func (r *effectRecorder) FlashError() {
	r.add(domain.UIEffect{Type: domain.EffectSubmitError})
}

func (r *effectRecorder) ShowBanner() {
	r.add(domain.UIEffect{Type: domain.EffectBannerShow})
}

func (r *effectRecorder) HideBanner() {
	r.add(domain.UIEffect{Type: domain.EffectBannerHide})
}

func (r *effectRecorder) HideForm() {
	r.add(domain.UIEffect{Type: domain.EffectFormHide})
}

func (r *effectRecorder) ResetForm() {
	r.add(domain.UIEffect{Type: domain.EffectFormReset})
}

func (r *effectRecorder) ShowToast(n domain.Notification) {
	r.add(domain.UIEffect{Type: domain.EffectToastShow, Notification: &n})
}

func (r *effectRecorder) RemoveToast(id string) {
	r.add(domain.UIEffect{Type: domain.EffectToastDismiss, Notification: &domain.Notification{ID: id}})
}
