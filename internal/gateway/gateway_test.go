package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/baulhq/baul/internal/models"
)

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"logs", "logs/"},
		{"logs/", "logs/"},
		{"a/b", "a/b/"},
	}
	for _, tt := range tests {
		if got := NormalizePrefix(tt.in); got != tt.want {
			t.Errorf("NormalizePrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFolderPath(t *testing.T) {
	if got := FolderPath("photos/2026"); got != "photos/2026/" {
		t.Errorf("FolderPath = %q", got)
	}
	if got := FolderPath("photos/"); got != "photos/" {
		t.Errorf("FolderPath = %q", got)
	}
}

func TestErrorWrapping(t *testing.T) {
	underlying := errors.New("NoSuchKey: the specified key does not exist")

	err := WrapErr("HeadMetadata", "media", "missing.txt", underlying)
	if err == nil {
		t.Fatal("WrapErr returned nil for non-nil error")
	}
	if !errors.Is(err, underlying) {
		t.Error("wrapped error lost its cause")
	}
	msg := err.Error()
	if !strings.Contains(msg, "HeadMetadata") || !strings.Contains(msg, "media/missing.txt") {
		t.Errorf("error message missing context: %q", msg)
	}

	if WrapErr("ListObjects", "b", "", nil) != nil {
		t.Error("WrapErr(nil) returned non-nil")
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		err      error
		notFound bool
		denied   bool
		network  bool
	}{
		{errors.New("NoSuchKey: not found"), true, false, false},
		{errors.New("api error NoSuchBucket"), true, false, false},
		{errors.New("StatusCode: 403, AccessDenied"), false, true, false},
		{errors.New("InvalidAccessKeyId"), false, true, false},
		{errors.New("dial tcp: connection refused"), false, false, true},
		{errors.New("request timeout"), false, false, true},
		{nil, false, false, false},
	}

	for _, tt := range tests {
		if got := IsNotFound(tt.err); got != tt.notFound {
			t.Errorf("IsNotFound(%v) = %v", tt.err, got)
		}
		if got := IsAccessDenied(tt.err); got != tt.denied {
			t.Errorf("IsAccessDenied(%v) = %v", tt.err, got)
		}
		if got := IsNetworkError(tt.err); got != tt.network {
			t.Errorf("IsNetworkError(%v) = %v", tt.err, got)
		}
	}
}

func TestProgressReaderReportsRunningCount(t *testing.T) {
	data := bytes.Repeat([]byte("p"), 100)
	var counts []int64
	r := NewProgressReader(bytes.NewReader(data), 100, func(transferred, total int64) {
		if total != 100 {
			t.Errorf("total = %d, want 100", total)
		}
		counts = append(counts, transferred)
	})

	out, err := io.ReadAll(io.LimitReader(r, 200))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 100 {
		t.Fatalf("read %d bytes, want 100", len(out))
	}
	if len(counts) == 0 || counts[len(counts)-1] != 100 {
		t.Errorf("final reported count = %v, want 100", counts)
	}
	for i := 1; i < len(counts); i++ {
		if counts[i] < counts[i-1] {
			t.Errorf("count went backwards: %v", counts)
		}
	}
}

func TestProgressWriterNilCallback(t *testing.T) {
	var sink bytes.Buffer
	w := NewProgressWriter(&sink, 10, nil)
	if _, err := w.Write([]byte("0123456789")); err != nil {
		t.Fatal(err)
	}
	if sink.Len() != 10 {
		t.Errorf("wrote %d bytes, want 10", sink.Len())
	}
}

func TestWriteToFileAtomicRename(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "sub", "out.bin")
	content := bytes.Repeat([]byte("w"), 4096)

	var last int64
	err := WriteToFile(dest, bytes.NewReader(content), int64(len(content)), func(transferred, total int64) {
		last = transferred
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("file content mismatch: %d bytes", len(got))
	}
	if last != int64(len(content)) {
		t.Errorf("final progress = %d, want %d", last, len(content))
	}

	// No partial files left behind.
	entries, _ := os.ReadDir(filepath.Dir(dest))
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want just the file", len(entries))
	}
}

func TestWriteToFileCleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	err := WriteToFile(dest, &failingReader{}, 100, nil)
	if err == nil {
		t.Fatal("WriteToFile succeeded with a failing reader")
	}

	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("destination exists after failed download")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("partial file left behind: %v", entries)
	}
}

type failingReader struct{}

func (*failingReader) Read([]byte) (int, error) {
	return 0, errors.New("stream reset")
}

type stubGateway struct{ Gateway }

func TestRegistryLazyDialAndCaching(t *testing.T) {
	dials := 0
	reg := NewRegistry(func(conn models.Connection) (Gateway, error) {
		dials++
		return &stubGateway{}, nil
	})

	reg.Register(models.Connection{ID: "c1", Name: "one"})

	if _, err := reg.Open("c1"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Open("c1"); err != nil {
		t.Fatal(err)
	}
	if dials != 1 {
		t.Errorf("dialed %d times, want 1", dials)
	}

	// Re-registering drops the cached client.
	reg.Register(models.Connection{ID: "c1", Name: "one-updated"})
	if _, err := reg.Open("c1"); err != nil {
		t.Fatal(err)
	}
	if dials != 2 {
		t.Errorf("dialed %d times after re-register, want 2", dials)
	}
}

func TestRegistryUnknownConnection(t *testing.T) {
	reg := NewRegistry(func(models.Connection) (Gateway, error) { return &stubGateway{}, nil })

	_, err := reg.Open("nope")
	if !errors.Is(err, ErrConnectionNotFound) {
		t.Errorf("err = %v, want ErrConnectionNotFound", err)
	}
}

type renameRecorder struct {
	Gateway
	copied  []string
	deleted []string
}

func (r *renameRecorder) CopyObject(_ context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	r.copied = append(r.copied, srcBucket+"/"+srcKey+"->"+dstBucket+"/"+dstKey)
	return nil
}

func (r *renameRecorder) DeleteObjects(_ context.Context, bucket string, keys []string) error {
	r.deleted = append(r.deleted, keys...)
	return nil
}

func TestRenameObjectCopiesThenDeletes(t *testing.T) {
	rec := &renameRecorder{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := RenameObject(ctx, rec, "media", "old.txt", "new.txt"); err != nil {
		t.Fatal(err)
	}
	if len(rec.copied) != 1 || rec.copied[0] != "media/old.txt->media/new.txt" {
		t.Errorf("copies = %v", rec.copied)
	}
	if len(rec.deleted) != 1 || rec.deleted[0] != "old.txt" {
		t.Errorf("deletes = %v", rec.deleted)
	}
}
