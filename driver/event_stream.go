// ABOUTME: This file consumes the home platform's server-sent event stream
// ABOUTME: Dispatches state_changed events and reconnects with backoff

package driver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"period-selector-sidecar/models"
)

// eventEnvelope is the stream's outer event frame
type eventEnvelope struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// StateChangedHandler receives decoded state_changed events
type StateChangedHandler func(event models.StateChangedEvent)

// StreamEvents consumes the platform's event stream and dispatches every
// state_changed event to handler. It reconnects with capped backoff and only
// returns when ctx is cancelled.
func (c *HomeClient) StreamEvents(ctx context.Context, handler StateChangedHandler) error {
	backoff := time.Second
	const maxBackoff = time.Minute

	for {
		err := c.consumeStream(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("Event stream disconnected, reconnecting",
			"error", err,
			"backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *HomeClient) consumeStream(ctx context.Context, handler StateChangedHandler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stream", nil)
	if err != nil {
		return fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "text/event-stream")

	// The streaming request must outlive the client's per-request timeout.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: HTTP %d", ErrUnauthorized, resp.StatusCode)
		}
		return fmt.Errorf("%w: stream returned HTTP %d", ErrServiceFailure, resp.StatusCode)
	}

	c.logger.Info("Event stream connected")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "ping" {
			continue
		}

		var envelope eventEnvelope
		if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
			c.logger.Debug("Skipping unparseable stream frame", "error", err)
			continue
		}
		if envelope.EventType != "state_changed" {
			continue
		}

		var event models.StateChangedEvent
		if err := json.Unmarshal(envelope.Data, &event); err != nil {
			c.logger.Debug("Skipping unparseable state_changed payload", "error", err)
			continue
		}
		handler(event)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream read: %w", err)
	}
	return fmt.Errorf("event stream closed by server")
}
