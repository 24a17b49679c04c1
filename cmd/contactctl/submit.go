package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"contact_form/internal/config"
	"contact_form/internal/domain"
	"contact_form/internal/repository"
	"contact_form/internal/service"
	"contact_form/pkg/clock"
	"contact_form/pkg/logger"
)

func runSubmit(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	relayURL := fs.String("relay-url", os.Getenv("RELAY_URL"), "Mail relay endpoint (env RELAY_URL)")
	rulesFile := fs.String("rules", os.Getenv("RULES_FILE"), "YAML file with field rules and spam phrases (env RULES_FILE)")
	timeout := fs.Duration("timeout", 10*time.Second, "Mail relay request timeout")
	hidden := fs.StringToString("hidden", map[string]string{"_captcha": "false"}, "Extra fields sent to the relay (k=v,...)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: contactctl submit [options]

Description:
  Prompt for name, email, subject and message, run the submission
  filter and send the form to the mail relay.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *relayURL == "" {
		fmt.Fprintln(os.Stderr, "relay URL is required (--relay-url or RELAY_URL)")
		return 2
	}

	log := logger.NewWithWriter(os.Stderr, globals.LogLevel)
	rules, err := config.LoadFormRules(*rulesFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ui := newTerminalUI(os.Stdout)
	clk := clock.Real()
	coordinator := newLocalCoordinator(rules, service.NewMailRelayClient(*relayURL, *timeout, *hidden), clk, ui, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	now := clk.Now()
	bold.Println(domain.Greeting(now.Hour()))
	dim.Println(domain.FormatClock(now))

	form := &terminalForm{validator: service.NewFieldValidator(rules.Fields), rules: rules.Fields, values: domain.FieldValues{}}
	for {
		if err := form.ask(); err != nil {
			return promptExit(err)
		}

		send := true
		if err := survey.AskOne(&survey.Confirm{Message: "Send message?", Default: true}, &send); err != nil {
			return promptExit(err)
		}
		if !send {
			return 0
		}

		outcome, err := coordinator.OnSubmit(ctx, form.values, ui.surface())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		log.Debug("Submission finished", "state", outcome.State)

		if outcome.State == service.StateSucceeded {
			return 0
		}

		retry := true
		prompt := &survey.Confirm{Message: fmt.Sprintf("Submission %s. Edit and try again?", describe(outcome)), Default: true}
		if err := survey.AskOne(prompt, &retry); err != nil {
			return promptExit(err)
		}
		if !retry {
			return 1
		}
	}
}

// newLocalCoordinator собирает ядро формы в процессе CLI: окно лимита в
// памяти, канал Relay замкнут на локальный слушатель.
func newLocalCoordinator(rules config.FormRules, relay service.MailRelay, clk clock.Clock, ui *terminalUI, log logger.Logger) *service.Coordinator {
	repos := repository.NewRepositories(nil, log)
	rateLimit := service.NewRateLimitService(repos.RateWindow, clk, log)
	validator := service.NewFieldValidator(rules.Fields)
	pipeline := service.NewPipeline(validator, service.NewSpamFilter(rules.Lexicon), rateLimit, domain.SubmissionRateRule, log)

	session := domain.FormSession{ID: uuid.NewString(), LoadedAt: clk.Now()}
	return service.NewCoordinator(session, service.CoordinatorDeps{
		Pipeline:  pipeline,
		Validator: validator,
		Relay:     relay,
		Sink:      listenerSink{listener: service.NewRelayListener(ui, log)},
		Presenter: service.NewPresenter(clk, log),
		Clock:     clk,
		RateRule:  domain.SubmissionRateRule,
		Log:       log,
	})
}

// terminalForm задает вопросы по полям; при повторе ответы предыдущей
// попытки подставляются как значения по умолчанию
type terminalForm struct {
	validator service.FieldValidator
	rules     domain.RuleSet
	values    domain.FieldValues
}

func (f *terminalForm) ask() error {
	for _, id := range domain.RequiredFields {
		var prompt survey.Prompt
		label := fieldLabel(f.rules, id)
		if id == domain.FieldMessage {
			prompt = &survey.Multiline{Message: label, Default: f.values[id]}
		} else {
			prompt = &survey.Input{Message: label, Default: f.values[id]}
		}

		var answer string
		if err := survey.AskOne(prompt, &answer, survey.WithValidator(f.validate(id))); err != nil {
			return err
		}
		f.values[id] = answer
	}
	return nil
}

// validate не пропускает ответ, пока поле не пройдет правило. Пустой ответ
// тоже ошибка: в терминале вернуться к полю позже нельзя.
func (f *terminalForm) validate(id domain.FieldID) survey.Validator {
	return func(ans interface{}) error {
		value, _ := ans.(string)
		if res := f.validator.Validate(id, value); !res.OK {
			return errors.New(res.Message)
		}
		return nil
	}
}

func promptExit(err error) int {
	if errors.Is(err, terminal.InterruptErr) {
		return 130
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}
