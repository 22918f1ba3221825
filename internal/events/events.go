// Package events publishes fire-and-forget operational events.
// Publishing never fails the caller: delivery errors are logged and dropped.
package events

import (
	"context"
	"log/slog"
	"time"
)

type Event struct {
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) {
	attrs := make([]any, 0, 2+2*len(e.Properties))
	attrs = append(attrs, "event", e.Name)
	for k, v := range e.Properties {
		attrs = append(attrs, k, v)
	}
	p.logger.InfoContext(ctx, "event published", attrs...)
}

// Multi fans an event out to several publishers.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	for _, p := range m {
		p.Publish(ctx, e)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
