package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/graylogcheck/internal/domain"
	"github.com/hamed0406/graylogcheck/internal/graylog"
)

// Searcher returns the newest messages of the log store. *graylog.Client
// implements it.
type Searcher interface {
	LatestMessages(ctx context.Context) (domain.SearchResult, error)
}

type LagChecker struct {
	Logger     *zap.Logger
	Search     Searcher
	Thresholds Thresholds
	// ConnectionErrorsAreCritical maps refused and timed out requests to
	// CRITICAL instead of UNKNOWN.
	ConnectionErrorsAreCritical bool
	Now                         func() time.Time
}

func NewLagChecker(logger *zap.Logger, s Searcher, th Thresholds, connErrCritical bool) *LagChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LagChecker{
		Logger:                      logger,
		Search:                      s,
		Thresholds:                  th,
		ConnectionErrorsAreCritical: connErrCritical,
		Now:                         time.Now,
	}
}

// Check runs one search and classifies the result. It never returns without
// an outcome.
func (c *LagChecker) Check(ctx context.Context) Outcome {
	out := c.check(ctx)
	out.Thresholds = c.Thresholds
	fields := []zap.Field{zap.String("status", out.Status.String()), zap.String("detail", out.Message)}
	if out.HasLag {
		fields = append(fields, zap.Duration("lag", out.Lag))
	}
	if out.Status == OK {
		c.Logger.Info("lag_check", fields...)
	} else {
		c.Logger.Warn("lag_check", fields...)
	}
	return out
}

func (c *LagChecker) check(ctx context.Context) Outcome {
	res, err := c.Search.LatestMessages(ctx)
	if err != nil {
		return c.searchFailed(err)
	}

	msg, err := res.Latest()
	if errors.Is(err, domain.ErrNoMessages) {
		return Outcome{Status: Critical, Message: "no messages returned by search"}
	}
	if err != nil {
		return Outcome{Status: Unknown, Message: fmt.Sprintf("%v: %v", graylog.ErrMalformed, err)}
	}

	ts, err := msg.Time()
	if err != nil {
		return Outcome{Status: Unknown, Message: fmt.Sprintf("%v: %v", graylog.ErrMalformed, err)}
	}

	lag := c.now().Sub(ts)
	if lag < 0 {
		lag = 0
	}
	return Outcome{
		Status:  c.Thresholds.Evaluate(lag),
		Message: fmt.Sprintf("last message %ds ago", seconds(lag)),
		Lag:     lag,
		HasLag:  true,
	}
}

func (c *LagChecker) searchFailed(err error) Outcome {
	if errors.Is(err, graylog.ErrConnection) || errors.Is(err, graylog.ErrTimeout) {
		st := Unknown
		if c.ConnectionErrorsAreCritical {
			st = Critical
		}
		return Outcome{Status: st, Message: err.Error()}
	}
	return Outcome{Status: Unknown, Message: err.Error()}
}

func (c *LagChecker) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
