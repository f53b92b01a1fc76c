package infra

import (
	"time"

	"github.com/chrisconley/couponfeat/specs"
)

// EventType represents the type of event in the system
type EventType int

const (
	SplitLoaded EventType = iota
	FeaturesBuilt
	TableWritten
	RunCompleted
	RunFailed
)

// String returns the string representation of the EventType
func (et EventType) String() string {
	switch et {
	case SplitLoaded:
		return "SplitLoaded"
	case FeaturesBuilt:
		return "FeaturesBuilt"
	case TableWritten:
		return "TableWritten"
	case RunCompleted:
		return "RunCompleted"
	case RunFailed:
		return "RunFailed"
	default:
		return "Unknown"
	}
}

type Event interface{ EventType() EventType }
type Handler func(Event)
type Bus struct{ subs map[EventType][]Handler }

func NewBus() *Bus { return &Bus{subs: map[EventType][]Handler{}} }
func (b *Bus) Publish(e Event) {
	for _, h := range b.subs[e.EventType()] {
		h(e)
	}
}
func (b *Bus) Subscribe(evt EventType, h Handler) { b.subs[evt] = append(b.subs[evt], h) }

// SplitLoadedEvent is published once a split has been read and filtered.
type SplitLoadedEvent struct {
	RunID string
	Split specs.Split
	Rows  int
}

func (SplitLoadedEvent) EventType() EventType { return SplitLoaded }

type FeaturesBuiltEvent struct {
	RunID   string
	Split   specs.Split
	Variant string
	Rows    int
	Columns int
}

func (FeaturesBuiltEvent) EventType() EventType { return FeaturesBuilt }

// TableWrittenEvent confirms that a sink stored a table.
type TableWrittenEvent struct {
	Receipt specs.WriteReceiptSpec
}

func (TableWrittenEvent) EventType() EventType { return TableWritten }

type RunCompletedEvent struct {
	RunID    string
	Variant  string
	Elapsed  time.Duration
	Receipts []specs.WriteReceiptSpec
}

func (RunCompletedEvent) EventType() EventType { return RunCompleted }

type RunFailedEvent struct {
	RunID string
	Err   error
}

func (RunFailedEvent) EventType() EventType { return RunFailed }
