// Package drain implements the error-drain worker from spec.md §4.3 (C3): a
// single long-lived goroutine that owns a private sublist of COMMAND jobs
// whose error streams must be read until EOF, and that never mutates the
// registry or closes a stream itself.
//
// The source design multiplexes many OS-level file descriptors with a
// single poll()-style selector plus a wake event. The idiomatic Go
// realization of that (grounded in the teacher's safereader.receiver
// goroutine-per-reader, fan-in-via-channel pattern) is used here instead: a
// small forwarder goroutine per job does the blocking Read, and the single
// Worker goroutine is the only place that ever appends to a job's error log
// or lowers its use_count, preserving the "one actor owns the bookkeeping"
// property spec.md cares about even though the blocking reads themselves
// are not literally multiplexed by one select() call.
package drain

import (
	"fmt"
	"time"

	"github.com/clayne/bgjobs/internal/job"
	"github.com/clayne/bgjobs/internal/jobid"
)

// readChunkSize mirrors spec.md's "~1 KiB-1" fixed read chunk.
const readChunkSize = 1023

// refreshInterval mirrors spec.md's "bounded timeout (~250 ms)".
const refreshInterval = 250 * time.Millisecond

type chunk struct {
	j    *job.Job
	data []byte
	err  error
}

// Worker is the error-drain worker. Create one with New and call Start
// once; Add and Wake may be called concurrently from the foreground
// goroutine for the lifetime of the worker.
type Worker struct {
	handoff chan *job.Job
	wake    chan struct{}
	readCh  chan chunk
	stop    chan struct{}
	stopped chan struct{}

	tracked map[jobid.ID]struct{}
}

// New creates a Worker. Call Start to begin draining.
func New() *Worker {
	return &Worker{
		handoff: make(chan *job.Job),
		wake:    make(chan struct{}, 1),
		readCh:  make(chan chunk, 16),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
		tracked: map[jobid.ID]struct{}{},
	}
}

// Start launches the worker's loop goroutine. All signals are implicitly
// "blocked" in the sense that this goroutine never touches process
// signaling; that remains the reaper's and spawn layer's job.
func (w *Worker) Start() {
	go w.loop()
}

// Stop shuts the worker down and waits for its loop to exit. It does not
// close any job's streams; those remain owned by the registry/job until
// freed.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.stopped
}

// Add hands a freshly spawned COMMAND job with a live error stream to the
// worker, equivalent to appending to new_err_jobs and signaling the
// condition variable in spec.md §4.2/§4.3. j must be a COMMAND job with a
// non-nil error stream.
func (w *Worker) Add(j *job.Job) {
	if j.Kind() != jobid.Command {
		panic(fmt.Sprintf("drain: %s job handed to error-drain worker", j.Kind()))
	}
	w.handoff <- j
}

// Wake pokes the worker, the Go analog of spec.md's wake event used by
// check() whenever it observes a job with erroring==true: harmless if the
// worker is already busy, and ensures it re-evaluates promptly if idle.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) loop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case j := <-w.handoff:
			w.track(j)

		case <-w.wake:
			// no-op poke: the forwarder goroutines already deliver data and
			// EOF as they happen, so there is nothing extra to refresh.

		case c := <-w.readCh:
			w.handle(c)

		case <-ticker.C:
			// bounded wait elapsed with nothing ready; loop back around.

		case <-w.stop:
			close(w.stopped)
			return
		}
	}
}

func (w *Worker) track(j *job.Job) {
	w.tracked[j.ID()] = struct{}{}
	go w.forward(j)
}

// forward does the blocking reads for one job's error stream and reports
// each chunk, or the terminal error/EOF, back to the worker loop. This is
// the only goroutine that ever calls Read on the stream.
func (w *Worker) forward(j *job.Job) {
	stream := j.ErrStream()
	if stream == nil {
		w.readCh <- chunk{j: j, err: errNoStream}
		return
	}

	buf := make([]byte, readChunkSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			w.readCh <- chunk{j: j, data: data}
		}
		if err != nil {
			w.readCh <- chunk{j: j, err: err}
			return
		}
	}
}

func (w *Worker) handle(c chunk) {
	if c.err != nil {
		delete(w.tracked, c.j.ID())
		c.j.DrainRelease()
		return
	}
	c.j.AppendError(c.data)
}

// errNoStream is a sentinel used internally when Add is (incorrectly)
// called with a job that has no error stream; it causes an immediate
// release rather than blocking forever.
var errNoStream = fmt.Errorf("drain: job has no error stream")
