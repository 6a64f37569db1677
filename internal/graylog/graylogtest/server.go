// Package graylogtest runs a stand-in for the Graylog search API. Each server
// owns its response and delay, so tests never share state.
package graylogtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	*httptest.Server
	body   string
	status int
	delay  time.Duration
	hits   atomic.Int64
	last   atomic.Pointer[http.Request]
}

// NewServer answers every search with body after waiting delay.
func NewServer(body string, delay time.Duration) *Server {
	return NewServerWithStatus(http.StatusOK, body, delay)
}

func NewServerWithStatus(status int, body string, delay time.Duration) *Server {
	s := &Server{body: body, status: status, delay: delay}
	r := chi.NewRouter()
	r.Get("/search/universal/relative", s.handleSearch)
	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)
	s.last.Store(r.Clone(r.Context()))
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(s.status)
	_, _ = w.Write([]byte(s.body))
}

// Hits counts search requests served so far.
func (s *Server) Hits() int64 { return s.hits.Load() }

// LastRequest is the most recent search request, or nil.
func (s *Server) LastRequest() *http.Request { return s.last.Load() }

// HostPort splits the listener address the way the plugin flags take it.
func (s *Server) HostPort() (string, int) {
	u, err := url.Parse(s.URL)
	if err != nil {
		panic(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		panic(err)
	}
	return u.Hostname(), port
}

// MessagesBody renders a search response holding one message per timestamp,
// each written in the local zone with its abbreviation.
func MessagesBody(ts ...time.Time) string {
	return MessagesBodyIn(time.Local, ts...)
}

func MessagesBodyIn(loc *time.Location, ts ...time.Time) string {
	out := `{"messages":[`
	for i, t := range ts {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"message":{"timestamp":%q}}`, t.In(loc).Format("2006-01-02T15:04:05.000MST"))
	}
	return out + `]}`
}

// RefusedAddr returns a loopback host and port with nothing listening on it.
func RefusedAddr() (string, int) {
	s := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(s.URL)
	s.Close()
	port, _ := strconv.Atoi(u.Port())
	return u.Hostname(), port
}
