// Package observability carries execution events out of the graph engine.
//
// Engine components emit Events through an Observer. Observers translate
// them into slog records, OpenTelemetry span events or metric updates.
// Level values align with OpenTelemetry SeverityNumbers so events can be
// forwarded to OTel collectors without translation.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level represents event severity aligned with OTel SeverityNumber ranges.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8), maps to slog.LevelDebug
	LevelInfo    Level = 9  // OTel INFO (9-12), maps to slog.LevelInfo
	LevelWarning Level = 13 // OTel WARN (13-16), maps to slog.LevelWarn
	LevelError   Level = 17 // OTel ERROR (17-20), maps to slog.LevelError
)

// String returns the OTel severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel maps this level to the corresponding slog.Level.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType identifies the kind of event.
type EventType string

// Event types emitted by the engine. Observers that aggregate (metrics,
// tracing) switch on these values.
const (
	// Graph execution
	EventGraphStart    EventType = "graph.start"
	EventGraphComplete EventType = "graph.complete"
	EventGraphFailed   EventType = "graph.failed"
	EventNodeStart     EventType = "node.start"
	EventNodeComplete  EventType = "node.complete"
	EventStateMerge    EventType = "state.merge"
	EventEdgeRoute     EventType = "edge.route"
	EventCycleDetected EventType = "cycle.detected"

	// Checkpointing
	EventCheckpointSave   EventType = "checkpoint.save"
	EventCheckpointLoad   EventType = "checkpoint.load"
	EventCheckpointResume EventType = "checkpoint.resume"
	EventCheckpointDelete EventType = "checkpoint.delete"

	// Batch processing
	EventBatchStart    EventType = "batch.start"
	EventBatchItem     EventType = "batch.item"
	EventBatchComplete EventType = "batch.complete"
)

// Event is an observability event emitted by engine components. Fields map
// to OTel LogRecord fields: Type→EventName, Level→SeverityNumber,
// Timestamp→Timestamp, Source→InstrumentationScope, Data→Attributes.
//
// Data carries execution telemetry (node names, step counts, run ids), not
// the content flowing through the graph.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Observer receives events for logging, tracing, or metrics.
//
// Implementations must not affect execution flow: failures inside OnEvent
// stay inside the observer.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) {
	f(ctx, event)
}
