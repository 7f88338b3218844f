// Package safereader implements the per-consumer side of
// internal/safebuffer: a goroutine-safe io.ReadCloser that replays
// everything written so far and then streams new writes as they arrive.
package safereader

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Reader is a goroutine safe io.ReadCloser that makes initial data available
// to callers as well as new data that arrives later via channel.
type Reader struct {
	mu        sync.Mutex
	buf       *bytes.Buffer
	close     func()
	closed    <-chan struct{}
	dataCh    <-chan []byte
	dataAvail chan struct{}
	closeOnce sync.Once
}

var _ io.ReadCloser = (*Reader)(nil)

// sourceDone doesn't race because Buffer.NewReader calls it while holding a
// lock that prevents new data, or the close of done, from being processed.
func sourceDone(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// Channels is returned alongside a live Reader so its owning Buffer can
// forward new writes and eventual closure.
type Channels struct {
	Data   chan []byte
	Closed <-chan struct{}
}

// New returns a new Reader that keeps a copy of data and will append any
// data that arrives on the returned Data channel. If done is already closed
// when New is called, the reader is treated as closed immediately and no
// new data can be added; Channels is nil in that case.
func New(data []byte, done <-chan struct{}) (*Reader, *Channels) {
	closed := make(chan struct{})
	closeFn := func() { close(closed) }

	buf := make([]byte, len(data))
	copy(buf, data)

	r := Reader{
		close:  closeFn,
		closed: closed,
		buf:    bytes.NewBuffer(buf),
	}

	var channels *Channels

	if !sourceDone(done) {
		dataCh := make(chan []byte)
		channels = &Channels{
			Data:   dataCh,
			Closed: closed,
		}
		r.dataCh = dataCh
		r.dataAvail = make(chan struct{})

		go r.receiver()
	} else {
		r.Close()
	}

	return &r, channels
}

func (r *Reader) isClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

// Read is the io.Reader interface and returns up to len(p) data in p.
func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()

	n, err := r.buf.Read(p)
	if !errors.Is(err, io.EOF) || r.isClosed() {
		r.mu.Unlock()
		return n, err
	}

	// reading buf returned io.EOF and the source is still live

	dataAvail := r.dataAvail // must read this while the lock is held

	r.mu.Unlock()

	select {
	case <-r.closed:
		return n, io.EOF
	case <-dataAvail:
		r.mu.Lock()
		defer r.mu.Unlock()
		var i int
		if i, err = r.buf.Read(p); errors.Is(err, io.EOF) {
			err = nil
		}
		return n + i, err
	}
}

// Close is the io.Closer interface. It is still possible to read any
// remaining buffered data until io.EOF is received, but no new data can be
// added once Close has been called.
func (r *Reader) Close() error {
	r.closeOnce.Do(r.close)
	return nil
}

func (r *Reader) receiver() {
	for {
		select {
		case <-r.closed:
			return
		case data, ok := <-r.dataCh:
			if !ok {
				r.Close()
				return
			}
			if _, err := r.write(data); err != nil {
				slog.Error("error writing to reader buffer", "err", err)
			}
		}
	}
}

func (r *Reader) write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.buf.Write(p)

	if err == nil && n > 0 {
		close(r.dataAvail)
		r.dataAvail = make(chan struct{})
	}

	return n, err
}
