// Package events fans run events out to the run journal, NATS subscribers and
// in-memory observers.
package events

import (
	"context"
	"errors"
	"sync"

	"git.home.luguber.info/inful/mdsite/internal/eventstore"
)

// Sink receives run events.
type Sink interface {
	Emit(ctx context.Context, event eventstore.Event) error
	Close() error
}

// MultiSink emits to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event eventstore.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, eventstore.Event) error { return nil }
func (Discard) Close() error                                 { return nil }

// Recorder keeps emitted events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []eventstore.Event
}

func (r *Recorder) Emit(_ context.Context, event eventstore.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []eventstore.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]eventstore.Event(nil), r.events...)
}

// Types returns the recorded event types in emission order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type()
	}
	return types
}
