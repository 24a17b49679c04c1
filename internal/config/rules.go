package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"contact_form/internal/domain"
)

// FormRules: правила полей и словарь спама
type FormRules struct {
	Fields  domain.RuleSet
	Lexicon []string
}

type rulesFile struct {
	Fields      []domain.FieldRule `yaml:"fields"`
	SpamPhrases []string           `yaml:"spam_phrases"`
}

func DefaultFormRules() FormRules {
	return FormRules{
		Fields:  domain.DefaultRules(),
		Lexicon: append([]string(nil), domain.DefaultSpamLexicon...),
	}
}

// LoadFormRules читает YAML с переопределениями. Пустой путь: значения по
// умолчанию. Поля из файла заменяют правила целиком, непустой список фраз
// заменяет словарь.
func LoadFormRules(path string) (FormRules, error) {
	rules := DefaultFormRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FormRules{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return parseFormRules(data, rules)
}

func parseFormRules(data []byte, rules FormRules) (FormRules, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return FormRules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}

	for _, rule := range file.Fields {
		if _, ok := domain.ParseFieldID(string(rule.Field)); !ok {
			return FormRules{}, fmt.Errorf("rules file: unknown field %q", rule.Field)
		}
		rules.Fields[rule.Field] = rule
	}
	if err := rules.Fields.Validate(); err != nil {
		return FormRules{}, fmt.Errorf("rules file: %w", err)
	}

	if len(file.SpamPhrases) > 0 {
		lexicon := make([]string, 0, len(file.SpamPhrases))
		for _, phrase := range file.SpamPhrases {
			if p := strings.ToLower(strings.TrimSpace(phrase)); p != "" {
				lexicon = append(lexicon, p)
			}
		}
		rules.Lexicon = lexicon
	}

	return rules, nil
}
