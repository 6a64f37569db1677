package domain

import (
	"errors"
	"strings"
)

// ErrNoMessages reports a search that matched nothing at all.
var ErrNoMessages = errors.New("no messages")

// ErrMissingTimestamp reports a newest message without message.timestamp.
var ErrMissingTimestamp = errors.New("message has no timestamp")

// SearchResult is the subset of a universal search response the lag check reads.
type SearchResult struct {
	Query        string           `json:"query,omitempty"`
	TotalResults int64            `json:"total_results"`
	Messages     []MessageSummary `json:"messages"`
}

type MessageSummary struct {
	Index   string  `json:"index,omitempty"`
	Message Message `json:"message"`
}

type Message struct {
	ID        string `json:"_id,omitempty"`
	Source    string `json:"source,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Latest returns the first message of the result. Searches are sorted
// newest first, so this is the most recent message.
func (r SearchResult) Latest() (Message, error) {
	if len(r.Messages) == 0 {
		return Message{}, ErrNoMessages
	}
	m := r.Messages[0].Message
	if strings.TrimSpace(m.Timestamp) == "" {
		return m, ErrMissingTimestamp
	}
	return m, nil
}
