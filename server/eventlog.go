package server

import (
	"context"
	"sync"
	"time"

	"github.com/matgreaves/console/spec"
)

// Event types recorded for a deployment.
const (
	EventDeploymentCreated  = "deployment.created"
	EventDeploymentStatus   = "deployment.status"
	EventDeploymentCanceled = "deployment.canceled"
)

// EventLog is the ordered history of one deployment. Events get
// contiguous sequence numbers starting at 1, and subscribers can replay
// from any point before following new events.
type EventLog struct {
	deploymentID string

	mu     sync.Mutex
	events []spec.DeploymentEvent
	seq    uint64
	notify chan struct{} // closed and replaced on each new event
}

func NewEventLog(deploymentID string) *EventLog {
	return &EventLog{
		deploymentID: deploymentID,
		notify:       make(chan struct{}),
	}
}

// Publish appends an event with the next sequence number, stamping the
// deployment id and, when unset, the current time.
func (l *EventLog) Publish(event spec.DeploymentEvent) spec.DeploymentEvent {
	l.mu.Lock()
	l.seq++
	event.Seq = l.seq
	event.DeploymentID = l.deploymentID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	l.events = append(l.events, event)
	ch := l.notify
	l.notify = make(chan struct{})
	l.mu.Unlock()

	close(ch)
	return event
}

// Events returns a snapshot of the log.
func (l *EventLog) Events() []spec.DeploymentEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]spec.DeploymentEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Since returns all events with sequence number > seq.
func (l *EventLog) Since(seq uint64) []spec.DeploymentEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.eventsSince(seq)
}

// eventsSince returns events with Seq > seq. Caller must hold l.mu.
func (l *EventLog) eventsSince(seq uint64) []spec.DeploymentEvent {
	start := int(seq)
	if start >= len(l.events) {
		return nil
	}
	out := make([]spec.DeploymentEvent, len(l.events)-start)
	copy(out, l.events[start:])
	return out
}

// Subscribe returns a channel that replays events after fromSeq and then
// streams new ones. The channel is closed when ctx is cancelled.
//
// The channel is buffered (64). A subscriber that falls behind misses
// events rather than blocking publishers.
func (l *EventLog) Subscribe(ctx context.Context, fromSeq uint64) <-chan spec.DeploymentEvent {
	ch := make(chan spec.DeploymentEvent, 64)

	go func() {
		defer close(ch)

		cursor := fromSeq
		for {
			l.mu.Lock()
			batch := l.eventsSince(cursor)
			notify := l.notify
			l.mu.Unlock()

			for _, e := range batch {
				select {
				case ch <- e:
				case <-ctx.Done():
					return
				default:
				}
				cursor = e.Seq
			}

			select {
			case <-notify:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// WaitFor returns the first event, existing or future, that matches.
func (l *EventLog) WaitFor(ctx context.Context, match func(spec.DeploymentEvent) bool) (spec.DeploymentEvent, error) {
	l.mu.Lock()
	for _, e := range l.events {
		if match(e) {
			l.mu.Unlock()
			return e, nil
		}
	}
	cursor := l.seq
	notify := l.notify
	l.mu.Unlock()

	for {
		select {
		case <-notify:
			l.mu.Lock()
			batch := l.eventsSince(cursor)
			notify = l.notify
			l.mu.Unlock()

			for _, e := range batch {
				if match(e) {
					return e, nil
				}
				cursor = e.Seq
			}
		case <-ctx.Done():
			return spec.DeploymentEvent{}, ctx.Err()
		}
	}
}
