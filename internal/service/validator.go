package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"contact_form/internal/domain"
)

type FieldValidator interface {
	Validate(field domain.FieldID, value string) domain.ValidationResult
	ValidateAll(values domain.FieldValues) []domain.FieldError
	Rule(field domain.FieldID) (domain.FieldRule, bool)
}

type fieldValidator struct {
	rules domain.RuleSet
}

func NewFieldValidator(rules domain.RuleSet) FieldValidator {
	if rules == nil {
		rules = domain.DefaultRules()
	}
	return &fieldValidator{rules: rules}
}

func (v *fieldValidator) Rule(field domain.FieldID) (domain.FieldRule, bool) {
	rule, ok := v.rules[field]
	return rule, ok
}

// Validate проверяет одно поле. Поля без правила считаются валидными.
func (v *fieldValidator) Validate(field domain.FieldID, value string) domain.ValidationResult {
	rule, ok := v.rules[field]
	if !ok {
		return domain.ValidationResult{OK: true}
	}

	val := strings.TrimSpace(value)
	length := utf8.RuneCountInString(val)

	if val == "" {
		return fail(fmt.Sprintf("%s is required.", rule.Label))
	}
	if length < rule.Min {
		return fail(fmt.Sprintf("%s must be at least %d characters (you entered %d).", rule.Label, rule.Min, length))
	}
	if length > rule.Max {
		return fail(fmt.Sprintf("%s must be under %d characters.", rule.Label, rule.Max))
	}
	if rule.Format == domain.FormatEmail && !domain.EmailPattern.MatchString(val) {
		return fail("Please enter a valid email address (e.g. user@example.com).")
	}

	return domain.ValidationResult{OK: true}
}

// ValidateAll проверяет все обязательные поля без короткого замыкания
func (v *fieldValidator) ValidateAll(values domain.FieldValues) []domain.FieldError {
	var errs []domain.FieldError
	for _, id := range domain.RequiredFields {
		if res := v.Validate(id, values[id]); !res.OK {
			errs = append(errs, domain.FieldError{Field: id, Message: res.Message})
		}
	}
	return errs
}

// StateFor переводит результат проверки в визуальное состояние поля
func StateFor(res domain.ValidationResult, showValid bool) domain.FieldState {
	switch {
	case !res.OK:
		return domain.FieldStateError
	case showValid:
		return domain.FieldStateSuccess
	default:
		return domain.FieldStateNeutral
	}
}

func fail(msg string) domain.ValidationResult {
	return domain.ValidationResult{OK: false, Message: msg}
}
