package k8s

import (
	"context"
	"io"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/remotecommand"
)

// Client defines the cluster operations the observer needs.
// It is implemented by *Connection and faked in tests.
type Client interface {
	// Pod Operations
	PodManager

	// Config Map Operations
	ConfigMapManager
}

// PodManager handles pod-specific operations.
type PodManager interface {
	// ListPods returns the pods matching a label selector. An empty list is not an error.
	ListPods(ctx context.Context, namespace, labelSelector string) ([]corev1.Pod, error)

	// GetLogs opens a log stream for a pod container.
	GetLogs(ctx context.Context, namespace, podName, containerName string, opts LogOptions) (io.ReadCloser, error)

	// Exec executes a command inside a pod container.
	Exec(ctx context.Context, namespace, podName, containerName string, command []string, opts ExecOptions) (*ExecResult, error)
}

// ConfigMapManager handles config map lookups.
type ConfigMapManager interface {
	// GetConfigMapData returns the data of the named config map.
	GetConfigMapData(ctx context.Context, namespace, name string) (map[string]string, error)
}

// Logger interface for client logging. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// LogOptions configures log retrieval.
type LogOptions struct {
	Follow     bool `json:"follow,omitempty"`
	Timestamps bool `json:"timestamps,omitempty"`
}

// ExecOptions configures command execution in pods.
// A nil stream is not requested from the API server.
type ExecOptions struct {
	Stdin  io.Reader `json:"-"`
	Stdout io.Writer `json:"-"`
	Stderr io.Writer `json:"-"`
	TTY    bool      `json:"tty,omitempty"`

	// SizeQueue propagates local terminal resizes when TTY is set.
	SizeQueue remotecommand.TerminalSizeQueue `json:"-"`
}

// ExecResult contains the result of command execution.
type ExecResult struct {
	// ExitCode is the exit status of the remote command.
	ExitCode int `json:"exitCode"`
}

// Success reports whether the remote command exited with status zero.
func (r *ExecResult) Success() bool {
	return r != nil && r.ExitCode == 0
}

var _ Client = (*Connection)(nil)
