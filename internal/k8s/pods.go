package k8s

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/client-go/util/exec"

	"github.com/mesa-tools/cfs-observer/internal/logging"
)

// PodManager implementation

// ListPods returns the pods in namespace matching labelSelector.
func (c *Connection) ListPods(ctx context.Context, namespace, labelSelector string) ([]corev1.Pod, error) {
	c.logOperation("list-pods", namespace, labelSelector)

	list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods in namespace %s with selector %q: %w", namespace, labelSelector, err)
	}

	return list.Items, nil
}

// GetLogs retrieves logs from a pod container.
func (c *Connection) GetLogs(ctx context.Context, namespace, podName, containerName string, opts LogOptions) (io.ReadCloser, error) {
	c.logOperation("get-logs", namespace, podName)

	logOpts := &corev1.PodLogOptions{
		Container:  containerName,
		Follow:     opts.Follow,
		Timestamps: opts.Timestamps,
	}

	logs, err := c.clientset.CoreV1().Pods(namespace).GetLogs(podName, logOpts).Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs for pod %s/%s: %w", namespace, podName, err)
	}

	return logs, nil
}

// Exec executes a command inside a pod container.
//
// A command that runs and exits non-zero is not an error: its status is
// reported in ExecResult.ExitCode. Errors are reserved for failures to
// establish or keep the exec session.
func (c *Connection) Exec(ctx context.Context, namespace, podName, containerName string, command []string, opts ExecOptions) (*ExecResult, error) {
	c.logOperation("exec", namespace, podName)

	execReq := c.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(podName).
		Namespace(namespace).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: containerName,
			Command:   command,
			Stdin:     opts.Stdin != nil,
			Stdout:    opts.Stdout != nil,
			Stderr:    opts.Stderr != nil,
			TTY:       opts.TTY,
		}, scheme.ParameterCodec)

	// The executor dials through the same rest.Config, so the SOCKS5 proxy
	// and the client certificate apply to the SPDY upgrade as well.
	executor, err := remotecommand.NewSPDYExecutor(c.restConfig, http.MethodPost, execReq.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	streamOpts := remotecommand.StreamOptions{
		Stdin:             opts.Stdin,
		Stdout:            opts.Stdout,
		Stderr:            opts.Stderr,
		Tty:               opts.TTY,
		TerminalSizeQueue: opts.SizeQueue,
	}

	err = executor.StreamWithContext(ctx, streamOpts)
	return execResult(namespace, podName, err)
}

// execResult turns the outcome of a stream into an ExecResult.
func execResult(namespace, podName string, err error) (*ExecResult, error) {
	if err == nil {
		return &ExecResult{ExitCode: 0}, nil
	}

	var exitErr utilexec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		return &ExecResult{ExitCode: exitErr.ExitStatus()}, nil
	}

	return nil, fmt.Errorf("failed to execute command in pod %s/%s: %w", namespace, podName, err)
}

// logOperation logs a cluster operation at debug level.
func (c *Connection) logOperation(operation, namespace, name string) {
	c.logger.Debug("cluster operation",
		logging.Operation(operation),
		logging.Namespace(namespace),
		logging.ResourceName(name),
	)
}
