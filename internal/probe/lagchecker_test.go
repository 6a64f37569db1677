package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/graylogcheck/internal/domain"
	"github.com/hamed0406/graylogcheck/internal/graylog"
	"github.com/hamed0406/graylogcheck/internal/graylog/graylogtest"
)

var defaultThresholds = Thresholds{Warning: 5 * time.Minute, Critical: 15 * time.Minute}

// fake searcher you can control
type fakeSearcher struct {
	res   domain.SearchResult
	err   error
	calls int
}

func (f *fakeSearcher) LatestMessages(ctx context.Context) (domain.SearchResult, error) {
	f.calls++
	return f.res, f.err
}

func resultAt(ts string) domain.SearchResult {
	return domain.SearchResult{Messages: []domain.MessageSummary{{Message: domain.Message{Timestamp: ts}}}}
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestLagChecker_ThresholdBoundaries(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want Status
	}{
		{0, OK},
		{299 * time.Second, OK},
		{300 * time.Second, Warning},
		{6 * time.Minute, Warning},
		{899 * time.Second, Warning},
		{900 * time.Second, Critical},
		{20 * time.Minute, Critical},
	}
	for _, c := range cases {
		ts := now.Add(-c.ago).Format(time.RFC3339Nano)
		chk := NewLagChecker(nil, &fakeSearcher{res: resultAt(ts)}, defaultThresholds, false)
		chk.Now = fixedClock(now)
		out := chk.Check(context.Background())
		if out.Status != c.want {
			t.Fatalf("lag %v: got %v want %v (%s)", c.ago, out.Status, c.want, out.Message)
		}
		if !out.HasLag || out.Lag != c.ago {
			t.Fatalf("lag %v: got lag %v", c.ago, out.Lag)
		}
	}
}

func TestLagChecker_FutureTimestampIsZeroLag(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	ts := now.Add(time.Hour).Format(time.RFC3339Nano)
	chk := NewLagChecker(nil, &fakeSearcher{res: resultAt(ts)}, defaultThresholds, false)
	chk.Now = fixedClock(now)

	out := chk.Check(context.Background())
	if out.Status != OK || out.Lag != 0 {
		t.Fatalf("want OK with zero lag, got %+v", out)
	}
}

func TestLagChecker_EmptyIsCriticalRegardlessOfThresholds(t *testing.T) {
	th := Thresholds{Warning: 1000 * time.Hour, Critical: 2000 * time.Hour}
	for _, flag := range []bool{false, true} {
		chk := NewLagChecker(nil, &fakeSearcher{res: domain.SearchResult{Messages: []domain.MessageSummary{}}}, th, flag)
		out := chk.Check(context.Background())
		if out.Status != Critical || out.HasLag {
			t.Fatalf("flag=%v: want CRITICAL without lag, got %+v", flag, out)
		}
	}
}

func TestLagChecker_ErrorMatrix(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		critical bool
		want     Status
	}{
		{"refused", fmt.Errorf("%w: dial tcp: connection refused", graylog.ErrConnection), false, Unknown},
		{"refused critical", fmt.Errorf("%w: dial tcp: connection refused", graylog.ErrConnection), true, Critical},
		{"timeout", fmt.Errorf("%w after 1s", graylog.ErrTimeout), false, Unknown},
		{"timeout critical", fmt.Errorf("%w after 1s", graylog.ErrTimeout), true, Critical},
		{"malformed", fmt.Errorf("%w: invalid character", graylog.ErrMalformed), false, Unknown},
		{"malformed critical flag", fmt.Errorf("%w: invalid character", graylog.ErrMalformed), true, Unknown},
		{"http status", fmt.Errorf("%w: 401 Unauthorized", graylog.ErrHTTPStatus), true, Unknown},
		{"unexpected", errors.New("boom"), true, Unknown},
	}
	for _, c := range cases {
		chk := NewLagChecker(nil, &fakeSearcher{err: c.err}, defaultThresholds, c.critical)
		out := chk.Check(context.Background())
		if out.Status != c.want {
			t.Fatalf("%s: got %v want %v", c.name, out.Status, c.want)
		}
		if out.Message == "" || out.HasLag {
			t.Fatalf("%s: want detail and no lag, got %+v", c.name, out)
		}
	}
}

func TestLagChecker_BadTimestampIsUnknown(t *testing.T) {
	for _, ts := range []string{"", "not a time", "2026-10-18"} {
		chk := NewLagChecker(nil, &fakeSearcher{res: resultAt(ts)}, defaultThresholds, true)
		out := chk.Check(context.Background())
		if out.Status != Unknown {
			t.Fatalf("timestamp %q: got %v", ts, out.Status)
		}
		if !strings.Contains(out.Message, "malformed") {
			t.Fatalf("timestamp %q: message %q", ts, out.Message)
		}
	}
}

func TestLagChecker_Idempotent(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	f := &fakeSearcher{res: resultAt(now.Add(-6 * time.Minute).Format(time.RFC3339Nano))}
	chk := NewLagChecker(nil, f, defaultThresholds, false)
	chk.Now = fixedClock(now)

	first := chk.Check(context.Background())
	for i := 0; i < 3; i++ {
		if got := chk.Check(context.Background()); got != first {
			t.Fatalf("run %d drifted: %+v vs %+v", i, got, first)
		}
	}
	if f.calls != 4 {
		t.Fatalf("want one search per check, got %d", f.calls)
	}
}

// End to end against a mock search API.

func checkAgainst(t *testing.T, s *graylogtest.Server, timeout time.Duration, critical bool) Outcome {
	t.Helper()
	host, port := s.HostPort()
	c := graylog.NewClient(nil, graylog.Options{Host: host, Port: port, Timeout: timeout})
	return NewLagChecker(nil, c, defaultThresholds, critical).Check(context.Background())
}

func TestLagChecker_LiveStatuses(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		body string
		want Status
	}{
		{"fresh", graylogtest.MessagesBody(now), OK},
		{"six minutes", graylogtest.MessagesBody(now.Add(-6 * time.Minute)), Warning},
		{"twenty minutes", graylogtest.MessagesBody(now.Add(-20 * time.Minute)), Critical},
		{"no data", `{"messages":[]}`, Critical},
		{"invalid json", `%&!`, Unknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := graylogtest.NewServer(c.body, 0)
			defer s.Close()
			if out := checkAgainst(t, s, 2*time.Second, false); out.Status != c.want {
				t.Fatalf("got %v want %v (%s)", out.Status, c.want, out.Message)
			}
		})
	}
}

func TestLagChecker_SlowServer(t *testing.T) {
	for _, critical := range []bool{false, true} {
		s := graylogtest.NewServer(graylogtest.MessagesBody(time.Now()), 2*time.Second)
		start := time.Now()
		out := checkAgainst(t, s, time.Second, critical)
		elapsed := time.Since(start)
		s.Close()

		want := Unknown
		if critical {
			want = Critical
		}
		if out.Status != want {
			t.Fatalf("critical=%v: got %v want %v (%s)", critical, out.Status, want, out.Message)
		}
		if elapsed > 1900*time.Millisecond {
			t.Fatalf("check blocked past timeout: %v", elapsed)
		}
	}
}

func TestLagChecker_Refused(t *testing.T) {
	host, port := graylogtest.RefusedAddr()
	for _, critical := range []bool{false, true} {
		c := graylog.NewClient(nil, graylog.Options{Host: host, Port: port, Timeout: time.Second})
		out := NewLagChecker(nil, c, defaultThresholds, critical).Check(context.Background())
		want := Unknown
		if critical {
			want = Critical
		}
		if out.Status != want {
			t.Fatalf("critical=%v: got %v want %v", critical, out.Status, want)
		}
	}
}

func TestLagChecker_MissingTimestampIsUnknown(t *testing.T) {
	res := domain.SearchResult{Messages: []domain.MessageSummary{{Message: domain.Message{Source: "web"}}}}
	chk := NewLagChecker(nil, &fakeSearcher{res: res}, defaultThresholds, true)
	out := chk.Check(context.Background())
	if out.Status != Unknown || out.HasLag {
		t.Fatalf("want UNKNOWN without lag, got %+v", out)
	}
	if !strings.Contains(out.Message, domain.ErrMissingTimestamp.Error()) {
		t.Fatalf("message %q", out.Message)
	}
}
