// Package events publishes notifications about audits that need follow-up.
package events

import (
	"context"
	"errors"
	"time"
)

// AlertRequiresAction is published when a saved audit scores below the department threshold.
const AlertRequiresAction = "audit.requires_action"

type AlertEvent struct {
	Type                     string    `json:"type"`
	AuditID                  int64     `json:"audit_id"`
	DepartmentID             int64     `json:"department_id"`
	AnalystID                int64     `json:"analyst_id"`
	AnalystName              string    `json:"analyst_name"`
	ConversationID           string    `json:"conversation_id"`
	Points                   int       `json:"points"`
	Percent                  int       `json:"percent"`
	Grade                    float64   `json:"grade"`
	Classification           string    `json:"classification"`
	MinimumAcceptablePercent float64   `json:"minimum_acceptable_percent"`
	OccurredAt               time.Time `json:"occurred_at"`
}

// Publisher delivers alert events to an external channel.
type Publisher interface {
	Publish(ctx context.Context, event AlertEvent) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, AlertEvent) error { return nil }
func (Nop) Close() error                              { return nil }

// Fanout delivers each event to all of its publishers and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event AlertEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
