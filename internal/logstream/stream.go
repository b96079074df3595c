package logstream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/mesa-tools/cfs-observer/internal/k8s"
)

// Stream yields the lines of a container log one at a time.
//
// A Stream is not safe for concurrent use, except for Close which may be
// called from another goroutine to interrupt a blocked Next.
type Stream struct {
	rc     io.ReadCloser
	reader *bufio.Reader

	namespace string
	pod       string
	container string

	line string
	err  error
	done bool

	closeOnce sync.Once
}

// Open starts following the logs of a container and returns a Stream over them.
func Open(ctx context.Context, client k8s.PodManager, namespace, pod, container string) (*Stream, error) {
	rc, err := client.GetLogs(ctx, namespace, pod, container, k8s.LogOptions{Follow: true})
	if err != nil {
		return nil, &k8s.StreamError{
			Namespace: namespace,
			Pod:       pod,
			Container: container,
			Reason:    "failed to open log stream",
			Err:       err,
		}
	}

	s := New(rc)
	s.namespace = namespace
	s.pod = pod
	s.container = container
	return s, nil
}

// New wraps an already open log body. Bytes that are not valid UTF-8
// terminate the stream with a StreamError.
func New(rc io.ReadCloser) *Stream {
	return &Stream{
		rc:     rc,
		reader: bufio.NewReader(transform.NewReader(rc, encoding.UTF8Validator)),
	}
}

// Next advances to the next line. It returns false once the stream has
// ended, either cleanly or with an error reported by Err. A final line
// without a trailing newline is still delivered.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}

	raw, err := s.reader.ReadString('\n')
	switch {
	case err == nil:
		s.line = trimEOL(raw)
		return true

	case errors.Is(err, io.EOF):
		s.finish(nil)
		if raw == "" {
			return false
		}
		s.line = trimEOL(raw)
		return true

	default:
		// The partial line read before the failure is dropped.
		s.finish(s.streamError(err))
		return false
	}
}

// Line returns the line produced by the last successful call to Next,
// without its line terminator.
func (s *Stream) Line() string {
	return s.line
}

// Err returns the error that terminated the stream, or nil after a clean end.
func (s *Stream) Err() error {
	return s.err
}

// Drain passes every remaining line to fn. It stops at the first error
// returned by fn, which is returned unchanged. Draining a stream that has
// already ended returns nil.
func (s *Stream) Drain(fn func(line string) error) error {
	if s.done {
		return nil
	}

	for s.Next() {
		if err := fn(s.line); err != nil {
			s.finish(nil)
			return err
		}
	}
	return s.err
}

// Close releases the underlying connection. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.rc.Close()
	})
	return err
}

// finish marks the stream as ended and closes the body.
func (s *Stream) finish(err error) {
	s.done = true
	s.line = ""
	s.err = err
	_ = s.Close()
}

func (s *Stream) streamError(err error) *k8s.StreamError {
	reason := "failed to read log stream"
	if errors.Is(err, encoding.ErrInvalidUTF8) {
		reason = "log stream is not valid UTF-8"
	}
	return &k8s.StreamError{
		Namespace: s.namespace,
		Pod:       s.pod,
		Container: s.container,
		Reason:    reason,
		Err:       err,
	}
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
