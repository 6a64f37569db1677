package graylog

import (
	"context"
	"errors"
	"net"
	"os"
)

var (
	ErrConnection = errors.New("connection failed")
	ErrTimeout    = errors.New("request timed out")
	ErrMalformed  = errors.New("malformed search response")
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

// isTimeout reports whether err came from a deadline rather than a refusal.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
