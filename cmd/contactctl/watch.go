package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"

	"contact_form/internal/middleware"
	"contact_form/internal/service"
	"contact_form/pkg/logger"
)

func runWatch(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	url := fs.String("url", "ws://localhost:8080/ws/relay", "Relay websocket URL")
	token := fs.String("token", os.Getenv("FORM_TOKEN"), "Form token: watch one form session (env FORM_TOKEN)")
	operatorToken := fs.String("operator-token", os.Getenv("RELAY_OPERATOR_TOKEN"), "Operator token: watch all form sessions (env RELAY_OPERATOR_TOKEN)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: contactctl watch [options]

Description:
  Connect to the relay channel of a running server and print clock ticks
  and sent forms as they arrive. A form token shows only that form's
  submissions; the operator token shows every form.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	header, err := relayHeader(*token, *operatorToken)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return 2
	}

	// Отправленные формы пишутся через логгер: не ниже info
	level := globals.LogLevel
	if level != "debug" {
		level = "info"
	}
	log := logger.NewWithWriter(os.Stdout, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := watchRelay(ctx, *url, header, service.NewRelayListener(newTerminalUI(os.Stdout), log), log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// relayHeader выбирает учетные данные для upgrade; оператор важнее формы
func relayHeader(token, operatorToken string) (http.Header, error) {
	header := http.Header{}
	switch {
	case operatorToken != "":
		header.Set("Authorization", "Bearer "+operatorToken)
	case token != "":
		header.Set(middleware.FormTokenHeader, token)
	default:
		return nil, fmt.Errorf("either --token or --operator-token is required")
	}
	return header, nil
}

// watchRelay читает сообщения до закрытия соединения или отмены ctx
func watchRelay(ctx context.Context, url string, header http.Header, listener *service.RelayListener, log logger.Logger) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("relay refused credentials: %w", err)
		}
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("relay connection lost: %w", err)
		}
		if !listener.Handle(data) {
			log.Debug("Ignoring unknown relay message", "size", len(data))
		}
	}
}
