package domain

import (
	"fmt"
	"regexp"
)

type FieldID string

const (
	FieldName    FieldID = "name"
	FieldEmail   FieldID = "email"
	FieldSubject FieldID = "subject"
	FieldMessage FieldID = "message"
)

// RequiredFields: поля формы в порядке отображения
var RequiredFields = []FieldID{FieldName, FieldEmail, FieldSubject, FieldMessage}

type FieldFormat string

const (
	FormatNone  FieldFormat = ""
	FormatEmail FieldFormat = "email"
)

// EmailPattern: непробельные символы без @, затем @, затем домен с точкой и
// хотя бы двумя символами после нее.
var EmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

type FieldRule struct {
	Field  FieldID     `json:"field" yaml:"field"`
	Min    int         `json:"min" yaml:"min"`
	Max    int         `json:"max" yaml:"max"`
	Label  string      `json:"label" yaml:"label"`
	Format FieldFormat `json:"format,omitempty" yaml:"format,omitempty"`
}

// RuleSet: правила по идентификатору поля
type RuleSet map[FieldID]FieldRule

func DefaultRules() RuleSet {
	return RuleSet{
		FieldName:    {Field: FieldName, Min: 2, Max: 100, Label: "Full Name"},
		FieldEmail:   {Field: FieldEmail, Min: 5, Max: 254, Label: "Email", Format: FormatEmail},
		FieldSubject: {Field: FieldSubject, Min: 3, Max: 150, Label: "Subject"},
		FieldMessage: {Field: FieldMessage, Min: 10, Max: 2000, Label: "Message"},
	}
}

func (rs RuleSet) Validate() error {
	for id, rule := range rs {
		if rule.Field != id {
			return fmt.Errorf("rule for %q declares field %q", id, rule.Field)
		}
		if rule.Min < 0 || rule.Min > rule.Max {
			return fmt.Errorf("rule for %q: min %d must be between 0 and max %d", id, rule.Min, rule.Max)
		}
		if rule.Label == "" {
			return fmt.Errorf("rule for %q has no label", id)
		}
		switch rule.Format {
		case FormatNone, FormatEmail:
		default:
			return fmt.Errorf("rule for %q has unknown format %q", id, rule.Format)
		}
	}
	return nil
}

func ParseFieldID(raw string) (FieldID, bool) {
	for _, id := range RequiredFields {
		if string(id) == raw {
			return id, true
		}
	}
	return "", false
}

type ValidationResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// FieldState: визуальное состояние поля
type FieldState string

const (
	FieldStateNeutral FieldState = "neutral"
	FieldStateError   FieldState = "error"
	FieldStateSuccess FieldState = "success"
)

// FieldError: сообщение об ошибке, привязанное к полю
type FieldError struct {
	Field   FieldID `json:"field"`
	Message string  `json:"message"`
}
