package k8s

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds of the observer.
// These errors can be checked using errors.Is() for programmatic error handling.
var (
	// ErrTransport indicates that the cluster connection could not be built or
	// negotiated (malformed credentials, invalid proxy, TLS failure).
	ErrTransport = errors.New("cluster transport error")

	// ErrTLSHandshakeFailed indicates that the TLS handshake with the API server failed.
	ErrTLSHandshakeFailed = errors.New("TLS handshake failed")

	// ErrConnectionTimeout indicates that the API server did not answer in time.
	ErrConnectionTimeout = errors.New("connection timeout")

	// ErrResourceNotReady indicates that a pod or container never reached the
	// required phase within the attempt budget of its polling policy.
	ErrResourceNotReady = errors.New("resource not ready")

	// ErrStream indicates that a log stream failed to open or broke mid-stream.
	ErrStream = errors.New("log stream error")

	// ErrExec indicates that one of the hops of the attach bridge failed.
	ErrExec = errors.New("exec error")

	// ErrContainerNotDeclared indicates that a pod exists but its spec has no
	// container of the requested name, so waiting for it cannot succeed.
	ErrContainerNotDeclared = errors.New("container not declared in pod spec")

	// ErrConfigMapNotFound indicates that no config map matched the requested name.
	ErrConfigMapNotFound = errors.New("config map not found")
)

// Resource kinds reported by ResourceNotReadyError.
const (
	ResourceKindPod       = "pod"
	ResourceKindContainer = "container"
)

// TransportError provides detailed context about a failure to build or use the
// cluster transport. It is never retried.
type TransportError struct {
	// Host is the API server endpoint, already sanitized for logging.
	Host string

	// Reason describes what went wrong.
	Reason string

	// Err is the underlying error, if any.
	Err error

	// TLS is set when the failure happened during the TLS handshake.
	TLS bool

	// Timeout is set when the failure was a timeout.
	Timeout bool
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	prefix := "cluster transport"
	if e.Host != "" {
		prefix = fmt.Sprintf("cluster transport (%s)", e.Host)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Reason)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is implements custom error matching for errors.Is().
func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return true
	case ErrTLSHandshakeFailed:
		return e.TLS
	case ErrConnectionTimeout:
		return e.Timeout
	}
	return false
}

// ResourceNotReadyError is returned when a pod or container did not become ready
// within its polling policy. It is terminal for the wait that produced it.
type ResourceNotReadyError struct {
	// Job is the job identity (the CFS session name or derived job name).
	Job string

	// Namespace is where the resource was looked up.
	Namespace string

	// Kind is either ResourceKindPod or ResourceKindContainer.
	Kind string

	// Name is the container name for container waits, or the label selector for pod waits.
	Name string

	// Attempts is the number of predicate evaluations performed.
	Attempts int

	// LastState is the last observed state, for diagnostics.
	LastState string
}

// Error implements the error interface.
func (e *ResourceNotReadyError) Error() string {
	msg := fmt.Sprintf("%s %q for job %q in namespace %q not ready after %d attempts",
		e.Kind, e.Name, e.Job, e.Namespace, e.Attempts)
	if e.LastState != "" {
		msg += fmt.Sprintf(" (last state: %s)", e.LastState)
	}
	return msg
}

// Is implements custom error matching for errors.Is().
func (e *ResourceNotReadyError) Is(target error) bool {
	return target == ErrResourceNotReady
}

// ContainerNotDeclaredError is returned when a matching pod does not declare
// the awaited container. It aborts the wait on the attempt that observed it.
type ContainerNotDeclaredError struct {
	Job       string
	Namespace string
	Pod       string
	Container string
}

// Error implements the error interface.
func (e *ContainerNotDeclaredError) Error() string {
	return fmt.Sprintf("pod %s/%s of job %q declares no container %q",
		e.Namespace, e.Pod, e.Job, e.Container)
}

// Is implements custom error matching for errors.Is().
func (e *ContainerNotDeclaredError) Is(target error) bool {
	return target == ErrContainerNotDeclared
}

// StreamError terminates a single log stream. It does not affect other streams.
type StreamError struct {
	Namespace string
	Pod       string
	Container string
	Reason    string
	Err       error
}

// Error implements the error interface.
// The target is omitted for streams that were not opened against a pod.
func (e *StreamError) Error() string {
	prefix := "log stream"
	if e.Namespace != "" || e.Pod != "" {
		prefix = fmt.Sprintf("log stream %s/%s", e.Namespace, e.Pod)
		if e.Container != "" {
			prefix += "[" + e.Container + "]"
		}
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Reason)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// Is implements custom error matching for errors.Is().
func (e *StreamError) Is(target error) bool {
	return target == ErrStream
}

// ExecError reports the failure of one hop of the attach bridge.
type ExecError struct {
	Job       string
	Hop       string
	Namespace string
	Pod       string
	Container string
	Err       error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	if e.Pod != "" {
		return fmt.Sprintf("attach to job %q failed at hop %q (%s/%s[%s]): %v",
			e.Job, e.Hop, e.Namespace, e.Pod, e.Container, e.Err)
	}
	return fmt.Sprintf("attach to job %q failed at hop %q (namespace %s): %v",
		e.Job, e.Hop, e.Namespace, e.Err)
}

// Unwrap returns the underlying error, so a ResourceNotReadyError behind a hop
// failure still matches ErrResourceNotReady.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// Is implements custom error matching for errors.Is().
func (e *ExecError) Is(target error) bool {
	return target == ErrExec
}
