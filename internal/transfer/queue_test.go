package transfer

import (
	"testing"
)

func descriptor(name string) Descriptor {
	return Descriptor{
		Type:         TypeUpload,
		ConnectionID: "conn-1",
		Bucket:       "bucket",
		Key:          "uploads/" + name,
		LocalPath:    "/tmp/" + name,
		Name:         name,
	}
}

func TestEnqueueAssignsUniqueIDs(t *testing.T) {
	q := NewQueue(nil)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec := q.Enqueue(descriptor("file.bin"))
		if rec.ID == "" {
			t.Fatal("empty record id")
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate record id %s", rec.ID)
		}
		seen[rec.ID] = true
		if rec.State != StateQueued {
			t.Errorf("new record state = %s, want %s", rec.State, StateQueued)
		}
	}

	if got := len(q.Records()); got != 50 {
		t.Errorf("Records() returned %d records, want 50", got)
	}
}

func TestUpdateMissingIDIsNoOp(t *testing.T) {
	q := NewQueue(nil)
	rec := q.Enqueue(descriptor("a.txt"))

	state := StateCompleted
	q.Update("no-such-id", Mutation{State: &state})

	got, ok := q.Record(rec.ID)
	if !ok {
		t.Fatal("record disappeared")
	}
	if got.State != StateQueued {
		t.Errorf("unrelated record state = %s, want %s", got.State, StateQueued)
	}
	if len(q.Records()) != 1 {
		t.Errorf("queue length = %d, want 1", len(q.Records()))
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	q := NewQueue(nil)
	rec := q.Enqueue(descriptor("a.txt"))

	q.Start(rec.ID)
	q.Complete(rec.ID)

	q.SetProgress(rec.ID, 10, 100)
	q.Fail(rec.ID, errTest)
	q.Start(rec.ID)

	got, _ := q.Record(rec.ID)
	if got.State != StateCompleted {
		t.Errorf("state after post-terminal updates = %s, want %s", got.State, StateCompleted)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %v, want 100", got.Progress)
	}
	if got.Error != "" {
		t.Errorf("error = %q, want empty", got.Error)
	}
}

func TestProgressIsMonotonicAndClamped(t *testing.T) {
	q := NewQueue(nil)
	rec := q.Enqueue(descriptor("a.txt"))
	q.Start(rec.ID)

	q.SetProgress(rec.ID, 60, 100)
	q.SetProgress(rec.ID, 40, 100) // out-of-order chunk callback
	got, _ := q.Record(rec.ID)
	if got.Progress != 60 {
		t.Errorf("progress after backwards update = %v, want 60", got.Progress)
	}
	if got.BytesTransferred != 60 {
		t.Errorf("bytes after backwards update = %d, want 60", got.BytesTransferred)
	}

	q.SetProgress(rec.ID, 150, 100)
	got, _ = q.Record(rec.ID)
	if got.BytesTransferred != 100 {
		t.Errorf("bytes = %d, want clamp to total 100", got.BytesTransferred)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %v, want clamp to 100", got.Progress)
	}
}

func TestCompletePinsBytesToTotal(t *testing.T) {
	q := NewQueue(nil)
	rec := q.Enqueue(Descriptor{Type: TypeUpload, Name: "big.iso", TotalBytes: 2048})

	q.Start(rec.ID)
	q.SetProgress(rec.ID, 1000, 2048)
	q.Complete(rec.ID)

	got, _ := q.Record(rec.ID)
	if got.State != StateCompleted {
		t.Fatalf("state = %s, want %s", got.State, StateCompleted)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %v, want 100", got.Progress)
	}
	if got.BytesTransferred != 2048 {
		t.Errorf("bytes = %d, want 2048", got.BytesTransferred)
	}
	if got.CompletedAt.IsZero() {
		t.Error("CompletedAt not stamped")
	}
}

func TestFailCapturesError(t *testing.T) {
	q := NewQueue(nil)
	rec := q.Enqueue(descriptor("a.txt"))

	q.Start(rec.ID)
	q.Fail(rec.ID, errTest)

	got, _ := q.Record(rec.ID)
	if got.State != StateFailed {
		t.Fatalf("state = %s, want %s", got.State, StateFailed)
	}
	if got.Error != errTest.Error() {
		t.Errorf("error = %q, want %q", got.Error, errTest.Error())
	}
}

func TestOverallProgress(t *testing.T) {
	q := NewQueue(nil)

	if got := q.OverallProgress(); got != 100 {
		t.Errorf("empty queue overall progress = %v, want 100", got)
	}

	a := q.Enqueue(descriptor("a.txt"))
	b := q.Enqueue(descriptor("b.txt"))
	q.Start(a.ID)
	q.Start(b.ID)
	q.SetProgress(a.ID, 40, 100)
	q.SetProgress(b.ID, 60, 100)

	if got := q.OverallProgress(); got != 50 {
		t.Errorf("overall progress = %v, want 50", got)
	}

	// Terminal records drop out of the mean.
	q.Complete(a.ID)
	if got := q.OverallProgress(); got != 60 {
		t.Errorf("overall progress after completion = %v, want 60", got)
	}

	q.Complete(b.ID)
	if got := q.OverallProgress(); got != 100 {
		t.Errorf("overall progress with no active records = %v, want 100", got)
	}
}

func TestClearCompletedKeepsActiveRecords(t *testing.T) {
	q := NewQueue(nil)

	done := q.Enqueue(descriptor("done.txt"))
	failed := q.Enqueue(descriptor("failed.txt"))
	cancelled := q.Enqueue(descriptor("cancelled.txt"))
	active := q.Enqueue(descriptor("active.txt"))
	queued := q.Enqueue(descriptor("queued.txt"))

	q.Start(done.ID)
	q.Complete(done.ID)
	q.Start(failed.ID)
	q.Fail(failed.ID, errTest)
	if err := q.Cancel(cancelled.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	q.Start(active.ID)

	q.ClearCompleted()

	recs := q.Records()
	if len(recs) != 2 {
		t.Fatalf("records after ClearCompleted = %d, want 2", len(recs))
	}
	if recs[0].ID != active.ID || recs[1].ID != queued.ID {
		t.Errorf("wrong records kept: %s, %s", recs[0].Name, recs[1].Name)
	}
}

func TestClearAllRemovesEverything(t *testing.T) {
	q := NewQueue(nil)

	a := q.Enqueue(descriptor("a.txt"))
	q.Enqueue(descriptor("b.txt"))
	q.Start(a.ID)

	q.ClearAll()

	if got := len(q.Records()); got != 0 {
		t.Fatalf("records after ClearAll = %d, want 0", got)
	}

	// Late executor updates against cleared ids must be harmless.
	q.SetProgress(a.ID, 50, 100)
	q.Complete(a.ID)
	if got := len(q.Records()); got != 0 {
		t.Errorf("records after late updates = %d, want 0", got)
	}
}

func TestRemoveSingleRecord(t *testing.T) {
	q := NewQueue(nil)
	a := q.Enqueue(descriptor("a.txt"))
	b := q.Enqueue(descriptor("b.txt"))

	q.Remove(a.ID)
	q.Remove("no-such-id")

	recs := q.Records()
	if len(recs) != 1 || recs[0].ID != b.ID {
		t.Fatalf("unexpected records after Remove: %+v", recs)
	}
}

func TestCancelErrors(t *testing.T) {
	q := NewQueue(nil)

	if err := q.Cancel("missing"); err == nil {
		t.Error("Cancel(missing) returned nil error")
	}

	rec := q.Enqueue(descriptor("a.txt"))
	q.Start(rec.ID)
	q.Complete(rec.ID)
	if err := q.Cancel(rec.ID); err == nil {
		t.Error("Cancel on terminal record returned nil error")
	}
}

func TestCancelInvokesStoredCancelFunc(t *testing.T) {
	q := NewQueue(nil)
	rec := q.Enqueue(descriptor("a.txt"))
	q.Start(rec.ID)

	invoked := false
	q.SetCancel(rec.ID, func() { invoked = true })

	if err := q.Cancel(rec.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !invoked {
		t.Error("stored cancel func not invoked")
	}

	got, _ := q.Record(rec.ID)
	if got.State != StateCancelled {
		t.Errorf("state = %s, want %s", got.State, StateCancelled)
	}
}

func TestActiveRecords(t *testing.T) {
	q := NewQueue(nil)

	a := q.Enqueue(descriptor("a.txt"))
	b := q.Enqueue(descriptor("b.txt"))
	q.Start(a.ID)
	q.Start(b.ID)
	q.Complete(b.ID)

	active := q.ActiveRecords()
	if len(active) != 1 || active[0].ID != a.ID {
		t.Fatalf("unexpected active records: %+v", active)
	}
}
