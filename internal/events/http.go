package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when an HTTP request is received.
// The event context carries the request id.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler wrote its response.
// Operations counts the GraphQL requests carried by the body, which is more
// than one for batches and zero for rejected requests.
type HTTPFinish struct {
	Request    *http.Request
	Status     int
	Operations int
	Duration   time.Duration
}
