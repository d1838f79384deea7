package transfer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/baulhq/baul/internal/events"
)

// Queue is the authoritative, in-memory collection of transfer records and
// the only writer of record state. Executors report into it; observers
// subscribe to the event bus and read snapshots.
//
// All mutations are linearized under one mutex, so concurrent executor
// invocations can update freely. An update or removal for an id that no
// longer exists is a benign no-op: a record may be cleared by the user
// while its transfer is still winding down.
type Queue struct {
	mu      sync.RWMutex
	records []*Record          // Creation order, for stable display
	byID    map[string]*Record // Index for lookups
	cancels map[string]context.CancelFunc
	bus     *events.Bus
}

// NewQueue creates an empty queue publishing to the given bus.
// A nil bus is allowed; the queue then simply tracks state.
func NewQueue(bus *events.Bus) *Queue {
	return &Queue{
		records: make([]*Record, 0),
		byID:    make(map[string]*Record),
		cancels: make(map[string]context.CancelFunc),
		bus:     bus,
	}
}

// Mutation is a partial update merged into a record by Update. Nil fields
// are left untouched.
type Mutation struct {
	State            *RecordState
	Progress         *float64
	BytesTransferred *int64
	TotalBytes       *int64
	Error            *string
}

// Enqueue creates a new queued record from the descriptor and returns a
// snapshot of it. It never fails; validating the descriptor is the
// caller's responsibility.
func (q *Queue) Enqueue(d Descriptor) Record {
	rec := newRecord(d)

	q.mu.Lock()
	q.records = append(q.records, rec)
	q.byID[rec.ID] = rec
	snapshot := *rec
	q.mu.Unlock()

	q.publish(events.EventTransferQueued, &snapshot)
	return snapshot
}

// Update merges the mutation into the record with the given id.
// Missing ids are ignored. Terminal records never change: completed,
// failed, and cancelled are absorbing states. Progress never moves
// backwards, and bytes transferred are clamped to the known total.
func (q *Queue) Update(id string, m Mutation) {
	q.mu.Lock()
	rec, ok := q.byID[id]
	if !ok || rec.IsTerminal() {
		q.mu.Unlock()
		return
	}

	if m.TotalBytes != nil && *m.TotalBytes > 0 {
		rec.TotalBytes = *m.TotalBytes
	}
	if m.BytesTransferred != nil {
		bytes := *m.BytesTransferred
		if rec.TotalBytes > 0 && bytes > rec.TotalBytes {
			bytes = rec.TotalBytes
		}
		if bytes > rec.BytesTransferred {
			rec.BytesTransferred = bytes
		}
	}
	if m.Progress != nil {
		p := *m.Progress
		if p > 100 {
			p = 100
		}
		if p > rec.Progress {
			rec.Progress = p
		}
	}
	if m.Error != nil {
		rec.Error = *m.Error
	}

	eventType := events.EventTransferProgress
	if m.State != nil && *m.State != rec.State {
		rec.State = *m.State
		switch rec.State {
		case StateInProgress:
			rec.StartedAt = time.Now()
			eventType = events.EventTransferStarted
		case StateCompleted:
			rec.CompletedAt = time.Now()
			eventType = events.EventTransferCompleted
		case StateFailed:
			rec.CompletedAt = time.Now()
			eventType = events.EventTransferFailed
		case StateCancelled:
			rec.CompletedAt = time.Now()
			eventType = events.EventTransferCancelled
		}
		if rec.State.Terminal() {
			delete(q.cancels, id)
		}
	}

	snapshot := *rec
	q.mu.Unlock()

	q.publish(eventType, &snapshot)
}

// Start transitions a record to in_progress and stamps its start time.
func (q *Queue) Start(id string) {
	state := StateInProgress
	q.Update(id, Mutation{State: &state})
}

// SetProgress records byte counts and the derived percentage.
func (q *Queue) SetProgress(id string, transferred, total int64) {
	m := Mutation{BytesTransferred: &transferred}
	if total > 0 {
		pct := float64(transferred) / float64(total) * 100
		m.Progress = &pct
		m.TotalBytes = &total
	}
	q.Update(id, m)
}

// Complete marks a record successfully finished: progress 100, bytes
// pinned to the total.
func (q *Queue) Complete(id string) {
	q.mu.RLock()
	rec, ok := q.byID[id]
	var total int64
	if ok {
		total = rec.TotalBytes
	}
	q.mu.RUnlock()
	if !ok {
		return
	}

	state := StateCompleted
	pct := 100.0
	m := Mutation{State: &state, Progress: &pct}
	if total > 0 {
		m.BytesTransferred = &total
	}
	q.Update(id, m)
}

// Fail marks a record failed, capturing the gateway error verbatim.
func (q *Queue) Fail(id string, err error) {
	state := StateFailed
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	q.Update(id, Mutation{State: &state, Error: &msg})
}

// SetCancel stores the cancel function covering a record's in-flight
// gateway call.
func (q *Queue) SetCancel(id string, cancel context.CancelFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rec, ok := q.byID[id]; ok && !rec.IsTerminal() {
		q.cancels[id] = cancel
	}
}

// Cancel aborts a queued or in-progress record: the stored cancel function
// stops the gateway call and the record moves to the cancelled state.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	rec, ok := q.byID[id]
	if !ok {
		q.mu.Unlock()
		return errors.New("record not found")
	}
	if rec.IsTerminal() {
		q.mu.Unlock()
		return errors.New("record already finished")
	}
	cancel := q.cancels[id]
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	state := StateCancelled
	q.Update(id, Mutation{State: &state})
	return nil
}

// CancelAll cancels every queued or in-progress record.
func (q *Queue) CancelAll() {
	q.mu.RLock()
	ids := make([]string, 0, len(q.records))
	for _, rec := range q.records {
		if rec.IsActive() {
			ids = append(ids, rec.ID)
		}
	}
	q.mu.RUnlock()

	for _, id := range ids {
		_ = q.Cancel(id)
	}
}

// Remove deletes a record. Intended for user dismissal of a terminal
// record; the operation itself is unconditional, and a missing id is a
// no-op. Removing an active record does not stop its gateway call — the
// executor's later updates simply hit a missing id.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	rec, ok := q.byID[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	q.deleteLocked(id)
	snapshot := *rec
	q.mu.Unlock()

	q.publish(events.EventTransferRemoved, &snapshot)
}

// ClearCompleted removes every terminal record (completed, failed,
// cancelled) and leaves active records untouched.
func (q *Queue) ClearCompleted() {
	q.clear(func(r *Record) bool { return r.IsTerminal() })
}

// ClearAll removes every record regardless of state. In-flight gateway
// calls are not cancelled; their later updates no-op against missing ids.
func (q *Queue) ClearAll() {
	q.clear(func(*Record) bool { return true })
}

func (q *Queue) clear(match func(*Record) bool) {
	q.mu.Lock()
	removed := make([]Record, 0)
	kept := make([]*Record, 0, len(q.records))
	for _, rec := range q.records {
		if match(rec) {
			delete(q.byID, rec.ID)
			delete(q.cancels, rec.ID)
			removed = append(removed, *rec)
		} else {
			kept = append(kept, rec)
		}
	}
	q.records = kept
	q.mu.Unlock()

	for i := range removed {
		q.publish(events.EventTransferRemoved, &removed[i])
	}
}

func (q *Queue) deleteLocked(id string) {
	delete(q.byID, id)
	delete(q.cancels, id)
	for i, rec := range q.records {
		if rec.ID == id {
			q.records = append(q.records[:i], q.records[i+1:]...)
			break
		}
	}
}

// Record returns a snapshot of one record.
func (q *Queue) Record(id string) (Record, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	rec, ok := q.byID[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Records returns snapshots of all records in creation order.
func (q *Queue) Records() []Record {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Record, len(q.records))
	for i, rec := range q.records {
		out[i] = *rec
	}
	return out
}

// ActiveRecords returns snapshots of all queued and in-progress records.
func (q *Queue) ActiveRecords() []Record {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Record, 0, len(q.records))
	for _, rec := range q.records {
		if rec.IsActive() {
			out = append(out, *rec)
		}
	}
	return out
}

// OverallProgress is the arithmetic mean of progress across active
// records, or 100 when none are active so an idle queue reads as done.
func (q *Queue) OverallProgress() float64 {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var sum float64
	var n int
	for _, rec := range q.records {
		if rec.IsActive() {
			sum += rec.Progress
			n++
		}
	}
	if n == 0 {
		return 100
	}
	return sum / float64(n)
}

func (q *Queue) publish(eventType events.EventType, rec *Record) {
	if q.bus == nil {
		return
	}
	q.bus.Publish(&events.TransferEvent{
		BaseEvent: events.BaseEvent{
			EventType: eventType,
			Time:      time.Now(),
		},
		RecordID:     rec.ID,
		RecordType:   string(rec.Type),
		ConnectionID: rec.ConnectionID,
		Bucket:       rec.Bucket,
		Key:          rec.Key,
		Name:         rec.Name,
		Progress:     rec.Progress,
		Bytes:        rec.BytesTransferred,
		TotalBytes:   rec.TotalBytes,
		Error:        rec.Error,
	})
}
