package domain

// UIEffectType: изменение, которое должна применить страница
type UIEffectType string

const (
	EffectFieldState   UIEffectType = "field_state"
	EffectShake        UIEffectType = "shake"
	EffectSummaryShow  UIEffectType = "summary_show"
	EffectSummaryHide  UIEffectType = "summary_hide"
	EffectSubmitBusy   UIEffectType = "submit_busy"
	EffectSubmitIdle   UIEffectType = "submit_idle"
	EffectSubmitError  UIEffectType = "submit_error"
	EffectFormHide     UIEffectType = "form_hide"
	EffectFormReset    UIEffectType = "form_reset"
	EffectBannerShow   UIEffectType = "banner_show"
	EffectBannerHide   UIEffectType = "banner_hide"
	EffectToastShow    UIEffectType = "toast_show"
	EffectToastDismiss UIEffectType = "toast_dismiss"
)

type UIEffect struct {
	Type         UIEffectType  `json:"type"`
	Field        FieldID       `json:"field,omitempty"`
	State        FieldState    `json:"state,omitempty"`
	Message      string        `json:"message,omitempty"`
	Errors       []FieldError  `json:"errors,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}
