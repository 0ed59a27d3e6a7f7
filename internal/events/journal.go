package events

import (
	"context"

	"git.home.luguber.info/inful/mdsite/internal/eventstore"
)

// JournalSink appends events to a run journal and keeps an optional history
// projection current.
type JournalSink struct {
	store      eventstore.Store
	projection *eventstore.RunHistoryProjection
}

// NewJournalSink wraps store. projection may be nil.
func NewJournalSink(store eventstore.Store, projection *eventstore.RunHistoryProjection) *JournalSink {
	return &JournalSink{store: store, projection: projection}
}

func (j *JournalSink) Emit(ctx context.Context, event eventstore.Event) error {
	if err := j.store.Append(ctx, event.RunID(), event.Type(), event.Payload(), event.Metadata()); err != nil {
		return err
	}
	if j.projection != nil {
		j.projection.Apply(event)
	}
	return nil
}

// Close closes the underlying store.
func (j *JournalSink) Close() error {
	return j.store.Close()
}
