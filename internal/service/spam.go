package service

import (
	"strings"

	"contact_form/internal/domain"
)

type SpamFilter interface {
	ContainsSpam(text string) bool
	// Offending возвращает поля (subject, message), в которых найдены фразы
	Offending(values domain.FieldValues) []domain.FieldID
}

type spamFilter struct {
	lexicon []string
}

func NewSpamFilter(lexicon []string) SpamFilter {
	if lexicon == nil {
		lexicon = domain.DefaultSpamLexicon
	}
	normalized := make([]string, 0, len(lexicon))
	for _, phrase := range lexicon {
		if p := strings.ToLower(strings.TrimSpace(phrase)); p != "" {
			normalized = append(normalized, p)
		}
	}
	return &spamFilter{lexicon: normalized}
}

// ContainsSpam: поиск подстроки без учета регистра и границ слов
func (f *spamFilter) ContainsSpam(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range f.lexicon {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func (f *spamFilter) Offending(values domain.FieldValues) []domain.FieldID {
	var fields []domain.FieldID
	for _, id := range []domain.FieldID{domain.FieldSubject, domain.FieldMessage} {
		if f.ContainsSpam(values[id]) {
			fields = append(fields, id)
		}
	}
	return fields
}
