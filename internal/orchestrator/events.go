// File: internal/orchestrator/events.go
package orchestrator

import (
	"time"

	"github.com/xkilldash9x/hometax-cli/internal/report"
)

// EventType names a lifecycle signal of a run.
type EventType string

const (
	RunStarted      EventType = "run_started"
	RecordProcessed EventType = "record_processed"
	RunCompleted    EventType = "run_completed"
)

// Status is the final state of one input row.
type Status string

const (
	StatusCommitted Status = "committed"
	StatusDuplicate Status = "duplicate"
	StatusInvalid   Status = "invalid"
	StatusFailed    Status = "failed"
)

// RecordOutcome describes what happened to one input row.
type RecordOutcome struct {
	Row    int         `json:"row"`
	Name   string      `json:"name"`
	Status Status      `json:"status"`
	Kind   report.Kind `json:"kind,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

// Event is delivered to the Observer as the run progresses. Record is set for
// RecordProcessed, Result for RunCompleted.
type Event struct {
	Type   EventType
	RunID  string
	Time   time.Time
	Record *RecordOutcome
	Result *Result
}

// Observer receives run events. Calls happen on the run's goroutine, in order.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) OnEvent(Event) {}
