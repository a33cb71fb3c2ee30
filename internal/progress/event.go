// Package progress collects per-unit sync milestones on a non-blocking hub
// and fans them out to pluggable sinks, such as the end-of-run summary log.
package progress

import (
	"errors"
	"time"
)

// Stage denotes the milestone an Event reports.
type Stage string

// Supported stages.
const (
	StageSynced  Stage = "SYNCED"
	StageSkipped Stage = "SKIPPED"
	StageIgnored Stage = "IGNORED"
	StageFailed  Stage = "FAILED"
)

// Event captures one milestone of the sync run.
type Event struct {
	// TS is the timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes what happened to the unit.
	Stage Stage
	// Path is the destination path relative to the sync target.
	Path string
	// Kind is the resource kind tag, as used in log output.
	Kind string
	// Bytes is the payload size written for StageSynced, zero otherwise.
	Bytes int64
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageSynced, StageSkipped, StageIgnored, StageFailed:
	default:
		return errors.New("unknown stage")
	}
	return nil
}

// Emitter publishes individual events; Hub satisfies this interface so the
// handlers stay agnostic about how events are buffered or summarized.
type Emitter interface {
	Emit(evt Event)
}
