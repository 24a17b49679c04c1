package domain

// Stage: этап фильтра отправки
type Stage string

const (
	StageValidation Stage = "validation"
	StageTiming     Stage = "timing"
	StageKeyword    Stage = "keyword"
	StageRateLimit  Stage = "rate_limit"
)

// RejectionKind: тип отказа
type RejectionKind string

const (
	RejectValidationFailed RejectionKind = "ValidationFailed"
	RejectTooFast          RejectionKind = "TooFast"
	RejectSpamDetected     RejectionKind = "SpamDetected"
	RejectRateLimited      RejectionKind = "RateLimited"
)

// Rejection возвращается первым сработавшим этапом
type Rejection struct {
	Stage  Stage         `json:"stage"`
	Kind   RejectionKind `json:"kind"`
	Fields []FieldError  `json:"fields,omitempty"`
}

func (r *Rejection) Error() string {
	return string(r.Kind)
}
