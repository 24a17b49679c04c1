package service

import (
	"contact_form/internal/domain"
)

// Области страницы, которые предоставляет окружение. Любая может
// отсутствовать: соответствующая обратная связь просто пропускается.

type FieldIndicator interface {
	SetFieldState(field domain.FieldID, state domain.FieldState, message string)
	Shake(field domain.FieldID)
}

type ValidationSummary interface {
	ShowSummary(errs []domain.FieldError)
	HideSummary()
}

type SubmitControl interface {
	SetBusy(busy bool)
	FlashError()
}

type SuccessBanner interface {
	ShowBanner()
	HideBanner()
}

type FormView interface {
	HideForm()
	// ResetForm очищает значения и снова показывает форму
	ResetForm()
}

type ToastContainer interface {
	ShowToast(n domain.Notification)
	RemoveToast(id string)
}

type Surface struct {
	Fields  FieldIndicator
	Summary ValidationSummary
	Submit  SubmitControl
	Banner  SuccessBanner
	Form    FormView
	Toasts  ToastContainer
}

func (s *Surface) setFieldState(field domain.FieldID, state domain.FieldState, message string) {
	if s != nil && s.Fields != nil {
		s.Fields.SetFieldState(field, state, message)
	}
}

func (s *Surface) shake(field domain.FieldID) {
	if s != nil && s.Fields != nil {
		s.Fields.Shake(field)
	}
}

func (s *Surface) showSummary(errs []domain.FieldError) {
	if s != nil && s.Summary != nil {
		s.Summary.ShowSummary(errs)
	}
}

func (s *Surface) hideSummary() {
	if s != nil && s.Summary != nil {
		s.Summary.HideSummary()
	}
}

func (s *Surface) setBusy(busy bool) {
	if s != nil && s.Submit != nil {
		s.Submit.SetBusy(busy)
	}
}

func (s *Surface) flashSubmitError() {
	if s != nil && s.Submit != nil {
		s.Submit.FlashError()
	}
}

func (s *Surface) showBanner() {
	if s != nil && s.Banner != nil {
		s.Banner.ShowBanner()
	}
}

func (s *Surface) hideBanner() {
	if s != nil && s.Banner != nil {
		s.Banner.HideBanner()
	}
}

func (s *Surface) hideForm() {
	if s != nil && s.Form != nil {
		s.Form.HideForm()
	}
}

func (s *Surface) resetForm() {
	if s != nil && s.Form != nil {
		s.Form.ResetForm()
	}
}

func (s *Surface) toasts() ToastContainer {
	if s == nil {
		return nil
	}
	return s.Toasts
}
