package orchestrate

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Observer receives structured events as a run advances. Handlers install a
// console observer; tests install a recording one.
type Observer interface {
	// Printf emits free-form progress output.
	Printf(format string, v ...any)

	// Event emits a structured run event.
	Event(event Event)
}

// EventType classifies run events.
type EventType string

const (
	EventPhaseStarted   EventType = "phase.started"
	EventPhaseCompleted EventType = "phase.completed"
	EventPhaseSkipped   EventType = "phase.skipped"
	EventPhaseFailed    EventType = "phase.failed"
	EventTargetReady    EventType = "target.ready"
	EventDryRun         EventType = "dryrun.action"
)

// Event is one structured run event.
type Event struct {
	Type      EventType
	Phase     Phase
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// ConsoleObserver renders events through the standard log package.
type ConsoleObserver struct{}

func (ConsoleObserver) Printf(format string, v ...any) {
	log.Printf(format, v...)
}

func (ConsoleObserver) Event(event Event) {
	var parts []string
	parts = append(parts, string(event.Type))
	if event.Phase != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Phase))
	}
	if event.Message != "" {
		parts = append(parts, event.Message)
	}
	if len(event.Fields) > 0 {
		var fields []string
		for k, v := range event.Fields {
			fields = append(fields, fmt.Sprintf("%s=%s", k, v))
		}
		parts = append(parts, "("+strings.Join(fields, ", ")+")")
	}
	log.Print(strings.Join(parts, " "))
}

func phaseStarted(o Observer, phase Phase) {
	o.Event(Event{Type: EventPhaseStarted, Phase: phase, Timestamp: time.Now()})
}

func phaseCompleted(o Observer, phase Phase, elapsed time.Duration) {
	o.Event(Event{
		Type:      EventPhaseCompleted,
		Phase:     phase,
		Message:   fmt.Sprintf("completed in %v", elapsed.Round(time.Millisecond)),
		Timestamp: time.Now(),
	})
}

func phaseSkipped(o Observer, phase Phase, reason string) {
	o.Event(Event{Type: EventPhaseSkipped, Phase: phase, Message: reason, Timestamp: time.Now()})
}

func phaseFailed(o Observer, phase Phase, err error) {
	o.Event(Event{
		Type:      EventPhaseFailed,
		Phase:     phase,
		Message:   fmt.Sprintf("failed: %v", err),
		Timestamp: time.Now(),
	})
}
