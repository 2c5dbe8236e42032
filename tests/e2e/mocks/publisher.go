package mocks

import (
	"context"
	"sync"

	"github.com/godilite/service-audit/internal/events"
)

// RecordingPublisher keeps every alert it is handed.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.AlertEvent
}

func (p *RecordingPublisher) Publish(_ context.Context, e events.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

func (p *RecordingPublisher) Events() []events.AlertEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.AlertEvent(nil), p.events...)
}
