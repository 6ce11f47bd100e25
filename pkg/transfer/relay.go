package transfer

import (
	"errors"
	"io"
	"sync/atomic"
)

var errSeekUnsupported = errors.New("progress reader: underlying reader does not support seeking")

// relay counts bytes and pushes Progress without blocking the stream
type relay struct {
	jobID JobID
	base  int64
	seen  atomic.Int64
	total atomic.Int64
	ch    chan<- Progress
}

// RelayOption customizes a progress relay
type RelayOption func(*relay)

// WithJobID tags every Progress event with the job id
func WithJobID(id JobID) RelayOption {
	return func(r *relay) { r.jobID = id }
}

// WithStartOffset starts counting at n, for transfers resumed mid-file
func WithStartOffset(n int64) RelayOption {
	return func(r *relay) {
		r.base = n
		r.seen.Store(n)
	}
}

func newRelay(total int64, ch chan<- Progress, opts []RelayOption) *relay {
	r := &relay{ch: ch}
	r.total.Store(total)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *relay) observe(n int) {
	if n <= 0 {
		return
	}
	seen := r.seen.Add(int64(n))
	total := r.total.Load()
	if total <= 0 || r.ch == nil {
		return
	}
	percent := float64(seen) / float64(total) * 100
	if percent > 100 {
		percent = 100
	}
	select {
	case r.ch <- Progress{JobID: r.jobID, Bytes: seen, Total: total, Percent: percent}:
	default:
	}
}

// Bytes returns how many bytes have been observed, including the start offset
func (r *relay) Bytes() int64 { return r.seen.Load() }

// SetTotal makes the declared size known; percent events start afterwards
func (r *relay) SetTotal(n int64) { r.total.Store(n) }

// ProgressReader wraps the body of an upload
type ProgressReader struct {
	*relay
	r io.Reader
}

// NewProgressReader returns a pass-through reader reporting on ch. A total
// of zero or less suppresses percent events until SetTotal is called.
func NewProgressReader(r io.Reader, total int64, ch chan<- Progress, opts ...RelayOption) *ProgressReader {
	return &ProgressReader{relay: newRelay(total, ch, opts), r: r}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.observe(n)
	return n, err
}

// Seek forwards to the wrapped reader so the SDK can rewind a body for
// signing or retries. The counter follows the new position, offset by the
// start offset.
func (p *ProgressReader) Seek(offset int64, whence int) (int64, error) {
	s, ok := p.r.(io.Seeker)
	if !ok {
		return 0, errSeekUnsupported
	}
	pos, err := s.Seek(offset, whence)
	if err == nil {
		p.seen.Store(p.base + pos)
	}
	return pos, err
}

// ProgressWriter wraps the sink of a download
type ProgressWriter struct {
	*relay
	w io.Writer
}

// NewProgressWriter returns a pass-through writer reporting on ch
func NewProgressWriter(w io.Writer, total int64, ch chan<- Progress, opts ...RelayOption) *ProgressWriter {
	return &ProgressWriter{relay: newRelay(total, ch, opts), w: w}
}

func (p *ProgressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.observe(n)
	return n, err
}
