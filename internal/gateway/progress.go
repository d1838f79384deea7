package gateway

import "io"

// ProgressReader wraps a reader and reports the running byte count to a
// ProgressFunc as data flows through. Used by providers to surface
// chunk-level upload progress.
type ProgressReader struct {
	r           io.Reader
	total       int64
	transferred int64
	fn          ProgressFunc
}

// NewProgressReader wraps r. total may be 0 when the size is unknown.
// fn may be nil, in which case the wrapper is pass-through.
func NewProgressReader(r io.Reader, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, fn: fn}
}

func (p *ProgressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.transferred += int64(n)
		if p.fn != nil {
			p.fn(p.transferred, p.total)
		}
	}
	return n, err
}

// ProgressWriter is the download-side counterpart: it counts bytes written
// through it and reports them to a ProgressFunc.
type ProgressWriter struct {
	w           io.Writer
	total       int64
	transferred int64
	fn          ProgressFunc
}

// NewProgressWriter wraps w. total may be 0 when the size is unknown.
func NewProgressWriter(w io.Writer, total int64, fn ProgressFunc) *ProgressWriter {
	return &ProgressWriter{w: w, total: total, fn: fn}
}

func (p *ProgressWriter) Write(buf []byte) (int, error) {
	n, err := p.w.Write(buf)
	if n > 0 {
		p.transferred += int64(n)
		if p.fn != nil {
			p.fn(p.transferred, p.total)
		}
	}
	return n, err
}
