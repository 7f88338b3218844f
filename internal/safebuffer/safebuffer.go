// Package safebuffer implements a goroutine-safe, append-only, multi-reader
// buffer. It backs CAPTURE_OUT stdout capture, for jobs that want their own
// replayable stream independent of the raw pipe. The job error log is kept
// separately, by internal/job's errLog.
package safebuffer

import (
	"bytes"
	"io"
	"sync"

	"github.com/clayne/bgjobs/internal/safebuffer/safereader"
)

// Buffer is a goroutine safe buffer that ingests data as an io.Writer and
// hands out io.ReadClosers that replay everything written so far and then
// stream new writes as they arrive.
type Buffer struct {
	mu    sync.RWMutex
	buf   bytes.Buffer
	done  <-chan struct{}
	chans map[chan []byte]<-chan struct{}
}

var _ io.Writer = (*Buffer)(nil)

// New creates a new Buffer. Readers created with NewReader are
// automatically closed once done closes.
func New(done <-chan struct{}) *Buffer {
	b := &Buffer{
		done:  done,
		chans: map[chan []byte]<-chan struct{}{},
	}
	go b.jobWatcher()
	return b
}

// jobWatcher waits for done to close, then closes every live reader's data
// channel and removes it from the map.
func (b *Buffer) jobWatcher() {
	<-b.done

	b.mu.Lock()
	defer b.mu.Unlock()

	for dataCh := range b.chans {
		close(dataCh)
		delete(b.chans, dataCh)
	}
}

// Write is the io.Writer interface; it appends to the buffer's own copy and
// forwards the bytes to every live reader.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for dataCh, readerClosed := range b.chans {
		select {
		case <-readerClosed:
			close(dataCh)
			delete(b.chans, dataCh)
		default:
			v := make([]byte, len(p))
			copy(v, p)
			dataCh <- v
		}
	}

	return b.buf.Write(p)
}

// String returns everything written to the buffer so far.
func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.buf.String()
}

// Len returns the number of bytes written to the buffer so far.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.buf.Len()
}

// NewReader creates a new io.ReadCloser that replays the buffer's contents
// from the beginning and then streams new data. It is the caller's
// responsibility to close it when done.
func (b *Buffer) NewReader() io.ReadCloser {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ch := safereader.New(b.buf.Bytes(), b.done)
	if ch != nil {
		b.chans[ch.Data] = ch.Closed
	}

	return r
}
