package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hamed0406/graylogcheck/internal/config"
	"github.com/hamed0406/graylogcheck/internal/graylog"
	"github.com/hamed0406/graylogcheck/internal/logging"
	"github.com/hamed0406/graylogcheck/internal/probe"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run performs one check and returns the exit code. Exactly one status line
// is written to stdout on every path.
func run(args []string, stdout, stderr io.Writer) int {
	return emit(stdout, evaluate(args, stderr))
}

// evaluate turns any panic, including one from flushing the logger, into
// UNKNOWN.
func evaluate(args []string, stderr io.Writer) (out probe.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = probe.Outcome{Status: probe.Unknown, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	cfg, err := config.Load(args, stderr)
	if err != nil {
		msg := "invalid configuration: " + err.Error()
		if errors.Is(err, pflag.ErrHelp) {
			msg = "usage requested"
		}
		return probe.Outcome{Status: probe.Unknown, Message: msg}
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		logger = logging.NewWriterLogger(stderr, cfg.LogLevel)
		logger.Error("log_dir_unusable", zap.String("dir", cfg.LogDir), zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	client := graylog.NewClient(logger, graylog.Options{
		Scheme:   cfg.Scheme,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		Query:    cfg.Query,
		Range:    cfg.Range,
		Timeout:  cfg.Timeout(),
	})
	checker := probe.NewLagChecker(logger, client, probe.Thresholds{
		Warning:  cfg.Warning(),
		Critical: cfg.Critical(),
	}, cfg.ConnectionErrorsAreCritical)

	return checker.Check(context.Background())
}

func emit(w io.Writer, out probe.Outcome) int {
	fmt.Fprintln(w, out.Line())
	return out.Status.ExitCode()
}
