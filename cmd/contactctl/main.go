package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

// GlobalFlags: флаги, общие для всех команд
type GlobalFlags struct {
	NoColor  bool
	LogLevel string
}

func main() {
	global := flag.NewFlagSet("contactctl", flag.ContinueOnError)
	global.SetInterspersed(false)

	var globals GlobalFlags
	global.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")
	global.StringVar(&globals.LogLevel, "log-level", envOr("LOG_LEVEL", "warn"), "Log level (debug|info|warn|error)")

	global.Usage = func() {
		fmt.Fprintf(os.Stderr, `contactctl - contact form in the terminal

Usage:
  contactctl [global options] <command> [options]

Commands:
  submit   Fill in and send the contact form
  watch    Follow the relay channel of a running server

Global Options:
`)
		global.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
For command help: contactctl <command> --help
`)
	}

	if err := global.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if globals.NoColor {
		color.NoColor = true
	}

	args := global.Args()
	if len(args) == 0 {
		global.Usage()
		os.Exit(2)
	}

	switch args[0] {
	case "submit":
		os.Exit(runSubmit(args[1:], globals))
	case "watch":
		os.Exit(runWatch(args[1:], globals))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		global.Usage()
		os.Exit(2)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
