package probe

import (
	"fmt"
	"strings"
	"time"
)

// Status is the four-valued plugin result. Its value is the process exit code.
type Status int

const (
	OK Status = iota
	Warning
	Critical
	Unknown
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ExitCode clamps anything outside the known range to UNKNOWN.
func (s Status) ExitCode() int {
	if s < OK || s > Unknown {
		return int(Unknown)
	}
	return int(s)
}

type Thresholds struct {
	Warning  time.Duration
	Critical time.Duration
}

// Evaluate places lag in [0,warn) OK, [warn,crit) WARNING, [crit,inf) CRITICAL.
func (t Thresholds) Evaluate(lag time.Duration) Status {
	switch {
	case lag >= t.Critical:
		return Critical
	case lag >= t.Warning:
		return Warning
	default:
		return OK
	}
}

// Outcome is the terminal decision of one run.
type Outcome struct {
	Status     Status
	Message    string
	Lag        time.Duration
	HasLag     bool
	Thresholds Thresholds
}

const linePrefix = "GRAYLOG LAG"

// Line renders the single status line, with perfdata when a lag was measured.
func (o Outcome) Line() string {
	msg := strings.ReplaceAll(o.Message, "\n", " ")
	line := fmt.Sprintf("%s %s - %s", linePrefix, o.Status, msg)
	if o.HasLag {
		line += fmt.Sprintf(" | lag=%ds;%d;%d;0",
			seconds(o.Lag), seconds(o.Thresholds.Warning), seconds(o.Thresholds.Critical))
	}
	return line
}

func seconds(d time.Duration) int64 { return int64(d / time.Second) }
