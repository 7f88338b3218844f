package spawn

import "os"

// stdio tracks every file the spawn layer opened for one attempt, so a
// failed spawn can close every end the caller will never see, and a
// successful one can close the ends the child now owns.
type stdio struct {
	inRead, inWrite   *os.File
	outWrite, outRead *os.File
	errWrite, errRead *os.File
	devNull           *os.File
}

// newStdio opens the pipes flags ask for, and a shared /dev/null (or NUL)
// handle for any stdio the caller did not request, so children never
// inherit the embedder's own file descriptors.
func newStdio(flags Flags) (*stdio, error) {
	var s stdio
	var err error

	if flags.Has(SupplyInput) {
		if s.inRead, s.inWrite, err = os.Pipe(); err != nil {
			return nil, err
		}
	}

	if flags.Has(CaptureOut) {
		if s.outRead, s.outWrite, err = os.Pipe(); err != nil {
			s.closeAll()
			return nil, err
		}
	}

	// MergeStreams only makes sense with CaptureOut: the child's stderr is
	// duplicated onto the same write end as stdout, so no separate error
	// pipe (and hence no drain-worker entry) is created.
	if !flags.Has(MergeStreams) {
		if s.errRead, s.errWrite, err = os.Pipe(); err != nil {
			s.closeAll()
			return nil, err
		}
	}

	if s.inRead == nil || s.outWrite == nil || s.errWrite == nil {
		if s.devNull, err = os.OpenFile(os.DevNull, os.O_RDWR, 0); err != nil {
			s.closeAll()
			return nil, err
		}
	}

	return &s, nil
}

// childFiles returns the three files to hand to os.StartProcess as the
// child's stdin, stdout, stderr.
func (s *stdio) childFiles() [3]*os.File {
	stdin := s.devNull
	if s.inRead != nil {
		stdin = s.inRead
	}

	stdout := s.devNull
	if s.outWrite != nil {
		stdout = s.outWrite
	}

	stderr := s.devNull
	switch {
	case s.errWrite != nil:
		stderr = s.errWrite
	case s.outWrite != nil && s.outWrite != s.devNull:
		// MERGE_STREAMS: no separate error pipe, duplicate onto stdout.
		stderr = s.outWrite
	}

	return [3]*os.File{stdin, stdout, stderr}
}

// closeChildEnds closes the ends of the pipes the child now owns, once
// StartProcess has duplicated them into the new process.
func (s *stdio) closeChildEnds() {
	closeIfOpen(s.inRead)
	closeIfOpen(s.outWrite)
	closeIfOpen(s.errWrite)
	closeIfOpen(s.devNull)
}

// closeParentUnused closes the ends the parent would have kept, used only
// when spawning failed and nothing was handed to the caller.
func (s *stdio) closeParentUnused() {
	closeIfOpen(s.inWrite)
	closeIfOpen(s.outRead)
	closeIfOpen(s.errRead)
}

func (s *stdio) closeAll() {
	s.closeChildEnds()
	s.closeParentUnused()
}

func closeIfOpen(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}
