package gateway

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/baulhq/baul/internal/constants"
)

// WriteToFile streams body to localPath through a progress writer. Bytes go
// to a temp file in the destination directory first and are renamed into
// place on success, so a failed download never leaves a truncated file at
// the destination path.
func WriteToFile(localPath string, body io.Reader, total int64, progress ProgressFunc) error {
	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(localPath)+".partial-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	pw := NewProgressWriter(tmp, total, progress)
	buf := make([]byte, constants.CopyBufferSize)
	_, copyErr := io.CopyBuffer(pw, body, buf)
	closeErr := tmp.Close()

	if copyErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		if copyErr == nil {
			copyErr = closeErr
		}
		return copyErr
	}

	if err := os.Rename(tmpPath, localPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize download: %w", err)
	}
	return nil
}
