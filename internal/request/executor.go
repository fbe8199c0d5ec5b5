// Package request implements the retrying HTTP executor the whole agent
// funnels its traffic through.
//
// One call to Do is one logical operation: up to MaxAttempts network attempts
// separated by exponentially growing backoff. Status codes steer the loop —
// 400 and 404 are permanent and fail immediately, 429 forces the next backoff
// to a fixed floor, everything else (timeouts, 5xx, connection resets) retries.
// Do never returns a Go error: all failure information is carried in the
// Outcome value.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// backoffMultiplier grows the retry delay between attempts.
const backoffMultiplier = 1.5

// Verb is the closed set of HTTP methods the executor supports.
type Verb int

const (
	Get Verb = iota
	Post
	Put
)

// Method returns the HTTP method string for the verb, or ok=false when the
// verb is outside the supported set.
func (v Verb) Method() (string, bool) {
	switch v {
	case Get:
		return http.MethodGet, true
	case Post:
		return http.MethodPost, true
	case Put:
		return http.MethodPut, true
	default:
		return "", false
	}
}

// Outcome is the tagged result of one executor invocation.
type Outcome struct {
	OK      bool
	Body    []byte // response body on success
	Status  int    // last HTTP status observed; 0 when no response arrived
	Message string // failure description; empty on success
}

func success(body []byte, status int) Outcome {
	return Outcome{OK: true, Body: body, Status: status}
}

func failure(message string, status int) Outcome {
	return Outcome{Message: message, Status: status}
}

// Sleeper suspends the calling task. It is injectable so tests can drive the
// retry loop without wall-clock delay.
type Sleeper func(ctx context.Context, d time.Duration)

// SleepContext waits for d or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Executor issues logical HTTP operations with bounded retries. It holds no
// per-call state and is safe to reuse across sequential calls.
type Executor struct {
	maxAttempts    int
	initialBackoff time.Duration
	rateLimitFloor time.Duration
	sleep          Sleeper
	logger         *zap.Logger
}

// NewExecutor builds an executor with the given retry budget. The sleeper
// defaults to SleepContext.
func NewExecutor(logger *zap.Logger, maxAttempts int, initialBackoff, rateLimitFloor time.Duration) *Executor {
	return &Executor{
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		rateLimitFloor: rateLimitFloor,
		sleep:          SleepContext,
		logger:         logger,
	}
}

// WithSleeper returns a copy of the executor using the given sleeper.
func (e *Executor) WithSleeper(sleep Sleeper) *Executor {
	clone := *e
	clone.sleep = sleep
	return &clone
}

// Do performs one logical operation against url using client. The payload is
// re-sent from the start on every attempt; header is applied as-is to each
// request. Exactly one network attempt happens per loop iteration.
func (e *Executor) Do(ctx context.Context, client *http.Client, verb Verb, url string, payload []byte, header http.Header) Outcome {
	method, ok := verb.Method()
	if !ok {
		return failure(fmt.Sprintf("method %d not supported", verb), 0)
	}

	backoff := e.initialBackoff
	var lastMessage string
	var lastStatus int

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		body, status, err := e.attempt(ctx, client, method, url, payload, header)
		if err == nil && status >= http.StatusOK && status < http.StatusMultipleChoices {
			return success(body, status)
		}

		lastStatus = status
		switch {
		case err != nil:
			lastMessage = err.Error()
		case len(body) > 0:
			lastMessage = errorMessage(body)
		default:
			lastMessage = http.StatusText(status)
		}

		if status == http.StatusTooManyRequests {
			// Server pressure: the next retry waits out the full floor no
			// matter how far the backoff had grown.
			backoff = e.rateLimitFloor
		}
		if status == http.StatusBadRequest || status == http.StatusNotFound {
			return failure(lastMessage, status)
		}

		if attempt < e.maxAttempts-1 {
			e.sleep(ctx, backoff)
			backoff = time.Duration(float64(backoff) * backoffMultiplier)
		}
	}

	e.logger.Error("request failed after retries",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("attempts", e.maxAttempts),
		zap.Int("status", lastStatus),
		zap.String("message", lastMessage))
	return failure(lastMessage, lastStatus)
}

// attempt performs a single network round trip.
func (e *Executor) attempt(ctx context.Context, client *http.Client, method, url string, payload []byte, header http.Header) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, err
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if payload != nil {
		req.ContentLength = int64(len(payload))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// errorMessage pulls the API's message field out of an error body, falling
// back to a trimmed copy of the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	const maxRaw = 200
	if len(body) > maxRaw {
		body = body[:maxRaw]
	}
	return string(body)
}
