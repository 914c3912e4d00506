package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the GraphQL endpoint receives a request.
// RequestID is the value echoed in the X-Request-Id response header.
type HTTPStart struct {
	Request   *http.Request
	RequestID string
}

// HTTPFinish is published after the response is written.
type HTTPFinish struct {
	Request   *http.Request
	RequestID string
	Status    int
	Duration  time.Duration
}
