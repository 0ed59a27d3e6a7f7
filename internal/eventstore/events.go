package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

// Event type names.
const (
	TypeRunStarted       = "RunStarted"
	TypeDocumentExported = "DocumentExported"
	TypeDocumentFailed   = "DocumentFailed"
	TypeRunCompleted     = "RunCompleted"
)

// Run outcomes carried by RunCompleted.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// RunStartedMeta describes the run being started.
type RunStartedMeta struct {
	Mode      string `json:"mode"` // build|watch
	Source    string `json:"source"`
	Output    string `json:"output"`
	Documents int    `json:"documents"`
}

// RunStarted is emitted when a batch run or a watch rebuild begins.
type RunStarted struct {
	BaseEvent
	Meta RunStartedMeta
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID string, meta RunStartedMeta) (*RunStarted, error) {
	payload, err := marshal(TypeRunStarted, runID, meta)
	if err != nil {
		return nil, err
	}
	return &RunStarted{BaseEvent: newBase(runID, TypeRunStarted, payload), Meta: meta}, nil
}

// DocumentExportedMeta identifies an exported document.
type DocumentExportedMeta struct {
	Path   string `json:"path"`
	Hash   string `json:"hash"`
	Output string `json:"output"`
}

// DocumentExported is emitted for every document written to the output tree.
type DocumentExported struct {
	BaseEvent
	Meta DocumentExportedMeta
}

// NewDocumentExported creates a DocumentExported event.
func NewDocumentExported(runID string, meta DocumentExportedMeta) (*DocumentExported, error) {
	payload, err := marshal(TypeDocumentExported, runID, meta)
	if err != nil {
		return nil, err
	}
	return &DocumentExported{BaseEvent: newBase(runID, TypeDocumentExported, payload), Meta: meta}, nil
}

// DocumentFailedMeta describes a document that could not be processed or exported.
type DocumentFailedMeta struct {
	Path     string `json:"path"`
	Stage    string `json:"stage"` // process|export
	Category string `json:"category,omitempty"`
	Error    string `json:"error"`
}

// DocumentFailed is emitted for every document that did not reach the output tree.
type DocumentFailed struct {
	BaseEvent
	Meta DocumentFailedMeta
}

// NewDocumentFailed creates a DocumentFailed event.
func NewDocumentFailed(runID string, meta DocumentFailedMeta) (*DocumentFailed, error) {
	payload, err := marshal(TypeDocumentFailed, runID, meta)
	if err != nil {
		return nil, err
	}
	return &DocumentFailed{BaseEvent: newBase(runID, TypeDocumentFailed, payload), Meta: meta}, nil
}

// RunCompletedMeta summarises a finished run.
type RunCompletedMeta struct {
	Status     string `json:"status"`
	Exported   int    `json:"exported"`
	Failed     int    `json:"failed"`
	DurationMS int64  `json:"duration_ms"`
}

// RunCompleted is emitted when a run finishes, whatever its outcome.
type RunCompleted struct {
	BaseEvent
	Meta RunCompletedMeta
}

// NewRunCompleted creates a RunCompleted event.
func NewRunCompleted(runID string, meta RunCompletedMeta) (*RunCompleted, error) {
	payload, err := marshal(TypeRunCompleted, runID, meta)
	if err != nil {
		return nil, err
	}
	return &RunCompleted{BaseEvent: newBase(runID, TypeRunCompleted, payload), Meta: meta}, nil
}

func newBase(runID, eventType string, payload []byte) BaseEvent {
	return BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}
}

func marshal(eventType, runID string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errors.EventStoreError("failed to marshal "+eventType+" payload").
			WithCause(err).
			WithContext("run_id", runID).
			Build()
	}
	return payload, nil
}
