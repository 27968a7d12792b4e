// Package notifier delivers journal events, such as finished simulations
// and archived reports, to external receivers.
package notifier

import (
	"context"
	"time"
)

// Event types.
const (
	EventMonteCarloFinished = "montecarlo.finished"
	EventReportArchived     = "report.archived"
)

// Event is one notification payload.
type Event struct {
	Type       string    `json:"type"`
	JobID      string    `json:"job_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier defines the interface for event notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers a single event
	Send(ctx context.Context, event Event) error
}
