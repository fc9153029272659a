package apiclient

import (
	"encoding/json"
	"fmt"
	"time"
)

// EnvelopeKind discriminates the normalized response variants.
type EnvelopeKind int

const (
	// KindCollection holds a list of items, whether the API returned a bare
	// array or wrapped it as {"data": [...]}.
	KindCollection EnvelopeKind = iota
	// KindObject holds a single JSON object payload.
	KindObject
	// KindFailure holds a non-2xx response.
	KindFailure
)

// APIError carries the status code and server-provided message of a failed
// request.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) String() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Envelope is the single normalized response shape returned by every Client
// call. Exactly one variant is populated, selected by Kind.
type Envelope struct {
	Kind       EnvelopeKind
	StatusCode int
	Elapsed    time.Duration // Wall-clock latency of the final attempt

	items   []map[string]any
	object  map[string]any
	failure *APIError
}

// Collection returns the item list when the response was a collection.
func (e *Envelope) Collection() ([]map[string]any, bool) {
	return e.items, e.Kind == KindCollection
}

// Object returns the payload when the response was a single object.
func (e *Envelope) Object() (map[string]any, bool) {
	return e.object, e.Kind == KindObject
}

// Failure returns error information when the request did not succeed.
func (e *Envelope) Failure() (*APIError, bool) {
	return e.failure, e.Kind == KindFailure
}

// OK reports whether the response was a 2xx.
func (e *Envelope) OK() bool {
	return e.Kind != KindFailure
}

// normalize folds the assorted payload shapes the application produces into
// one Envelope. The API historically returned bare arrays from some routes
// and {"data": [...]} wrappers from others; both become KindCollection here.
func normalize(statusCode int, raw []byte, elapsed time.Duration) *Envelope {
	env := &Envelope{StatusCode: statusCode, Elapsed: elapsed}

	if statusCode < 200 || statusCode >= 300 {
		env.Kind = KindFailure
		env.failure = &APIError{StatusCode: statusCode, Message: extractMessage(raw)}
		return env
	}

	var asList []map[string]any
	if err := json.Unmarshal(raw, &asList); err == nil {
		env.Kind = KindCollection
		env.items = asList
		return env
	}

	var asObject map[string]any
	if err := json.Unmarshal(raw, &asObject); err == nil {
		if wrapped, ok := asObject["data"].([]any); ok {
			items := make([]map[string]any, 0, len(wrapped))
			for _, entry := range wrapped {
				if m, ok := entry.(map[string]any); ok {
					items = append(items, m)
				}
			}
			env.Kind = KindCollection
			env.items = items
			return env
		}
		env.Kind = KindObject
		env.object = asObject
		return env
	}

	// Non-JSON 2xx body; treat as an empty object rather than a failure.
	env.Kind = KindObject
	env.object = map[string]any{}
	return env
}

func extractMessage(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return string(raw)
	}
	for _, key := range []string{"error", "message", "detail"} {
		if msg, ok := body[key].(string); ok {
			return msg
		}
	}
	return ""
}
