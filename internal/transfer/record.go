// Package transfer provides the transfer orchestration engine: the record
// queue that tracks every upload and download, and the executor that drives
// storage gateway calls and reports progress back into the queue.
package transfer

import (
	"time"

	"github.com/google/uuid"
)

// RecordType indicates whether a record is an upload or download.
type RecordType string

const (
	TypeUpload   RecordType = "upload"
	TypeDownload RecordType = "download"
)

// RecordState represents the lifecycle state of a transfer record.
// Transitions are one-directional: queued -> in_progress -> terminal.
type RecordState string

const (
	StateQueued     RecordState = "queued"
	StateInProgress RecordState = "in_progress"
	StateCompleted  RecordState = "completed"
	StateFailed     RecordState = "failed"
	StateCancelled  RecordState = "cancelled"
)

// Terminal reports whether a state is absorbing: once a record reaches a
// terminal state nothing mutates it again except removal from the queue.
func (s RecordState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Descriptor is the caller's request to enqueue one transfer.
// Validation is the caller's job; Enqueue always succeeds.
type Descriptor struct {
	Type         RecordType
	ConnectionID string
	Bucket       string
	Key          string // Object key (destination for uploads, source for downloads)
	LocalPath    string // Local file path (source for uploads, destination for downloads)
	Name         string // Display name, usually the filename
	TotalBytes   int64  // 0 when unknown (resolved by the executor for uploads)
}

// Record is one queued, active, or finished transfer. Records are owned
// exclusively by the Queue: everything outside the queue sees value copies,
// and only the queue's methods mutate the canonical record.
type Record struct {
	ID           string
	Type         RecordType
	ConnectionID string
	Bucket       string
	Key          string
	LocalPath    string
	Name         string

	State            RecordState
	Progress         float64 // 0 to 100, monotonic while in progress
	BytesTransferred int64
	TotalBytes       int64  // 0 when unknown
	Error            string // Message from the gateway when State is failed

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// newRecord builds a queued record from a descriptor.
func newRecord(d Descriptor) *Record {
	return &Record{
		ID:           uuid.NewString(),
		Type:         d.Type,
		ConnectionID: d.ConnectionID,
		Bucket:       d.Bucket,
		Key:          d.Key,
		LocalPath:    d.LocalPath,
		Name:         d.Name,
		State:        StateQueued,
		TotalBytes:   d.TotalBytes,
		CreatedAt:    time.Now(),
	}
}

// IsTerminal reports whether the record finished (completed, failed, or
// cancelled).
func (r *Record) IsTerminal() bool {
	return r.State.Terminal()
}

// IsActive reports whether the record is queued or in progress.
func (r *Record) IsActive() bool {
	return r.State == StateQueued || r.State == StateInProgress
}
