package attach

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"k8s.io/kubectl/pkg/util/term"

	"github.com/mesa-tools/cfs-observer/internal/instrumentation"
	"github.com/mesa-tools/cfs-observer/internal/k8s"
	"github.com/mesa-tools/cfs-observer/internal/locator"
	"github.com/mesa-tools/cfs-observer/internal/logging"
	"github.com/mesa-tools/cfs-observer/internal/readiness"
)

// Hops of the bridge, reported in ExecError.Hop.
const (
	HopLocateOperator = "locate-operator"
	HopDiscover       = "discover"
	HopDerive         = "derive"
	HopLocateTarget   = "locate-target"
	HopShell          = "shell"
)

// DiscoveryCommand prints the first image customization host of the CFS inventory.
var DiscoveryCommand = []string{
	"sh", "-c", "cat /inventory/hosts/01-cfs-generated.yaml | grep cray-ims- | head -n 1",
}

// ShellCommand is started in the target container.
var ShellCommand = []string{"bash"}

// exitCodeInterrupted is what bash reports after ctrl+c or an interrupted exit.
const exitCodeInterrupted = 130

// Streams are the local ends of the interactive session.
type Streams struct {
	In  io.Reader
	Out io.Writer
}

// Discovery is the outcome of the first two hops.
type Discovery struct {
	Job string

	// OperatorPod ran the discovery command.
	OperatorPod string

	// InventoryLine is the raw discovery output.
	InventoryLine string

	// Target selects the image customization job pods.
	Target locator.Target
}

// Bridge opens an interactive shell in the image customization job of a CFS session.
type Bridge struct {
	client  k8s.PodManager
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	policy      readiness.Policy
	pollOptions []readiness.Option

	locator *locator.Locator
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithMetrics records exec calls and active sessions.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = metrics
	}
}

// WithPolicy overrides the policy used to wait for both pods.
func WithPolicy(policy readiness.Policy) Option {
	return func(b *Bridge) {
		b.policy = policy
	}
}

// WithPollOptions passes options to every readiness poll.
func WithPollOptions(opts ...readiness.Option) Option {
	return func(b *Bridge) {
		b.pollOptions = append(b.pollOptions, opts...)
	}
}

// New returns a Bridge using client for every cluster call.
func New(client k8s.PodManager, opts ...Option) *Bridge {
	b := &Bridge{
		client: client,
		logger: logging.Discard(),
		policy: readiness.ShortPolicy,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.locator = locator.New(client,
		locator.WithLogger(b.logger),
		locator.WithMetrics(b.metrics),
		locator.WithPollOptions(b.pollOptions...),
	)
	return b
}

// Discover runs the first two hops: it reads the inventory of the session's
// operator pod and derives the target job from it.
func (b *Bridge) Discover(ctx context.Context, job string) (*Discovery, error) {
	logger := logging.WithJob(b.logger, job)
	session := locator.SessionTarget(job)

	var operator string
	err := b.hop(ctx, job, HopLocateOperator, func(ctx context.Context) *k8s.ExecError {
		pod, err := b.locator.WaitForAnyPod(ctx, session, b.policy)
		if err != nil {
			return &k8s.ExecError{Namespace: session.Namespace, Err: err}
		}
		operator = pod.Name
		return nil
	})
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer
	err = b.hop(ctx, job, HopDiscover, func(ctx context.Context) *k8s.ExecError {
		execErr := &k8s.ExecError{Namespace: session.Namespace, Pod: operator, Container: k8s.OperatorContainerName}

		result, err := b.exec(ctx, session.Namespace, operator, k8s.OperatorContainerName, DiscoveryCommand, k8s.ExecOptions{Stdout: &output})
		if err != nil {
			execErr.Err = err
			return execErr
		}
		if !result.Success() {
			execErr.Err = fmt.Errorf("discovery command exited with status %d", result.ExitCode)
			return execErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	discovery := &Discovery{
		Job:           job,
		OperatorPod:   operator,
		InventoryLine: output.String(),
	}
	err = b.hop(ctx, job, HopDerive, func(context.Context) *k8s.ExecError {
		jobName, err := DeriveTargetJobName(discovery.InventoryLine)
		if err != nil {
			return &k8s.ExecError{Namespace: session.Namespace, Pod: operator, Container: k8s.OperatorContainerName, Err: err}
		}
		discovery.Target = locator.ImageJobTarget(job, jobName)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("discovered image customization job",
		logging.Pod(operator),
		logging.Namespace(discovery.Target.Namespace),
		slog.String("selector", discovery.Target.Selector))

	return discovery, nil
}

// Attach discovers the target of job and runs an interactive shell in its
// sshd container until the shell exits. It returns the shell's exit code;
// an interrupted shell (130) counts as a normal exit and yields 0.
//
// When streams.In is a terminal it is switched to raw mode for the duration
// of the session and window size changes are forwarded.
func (b *Bridge) Attach(ctx context.Context, job string, streams Streams) (int, error) {
	discovery, err := b.Discover(ctx, job)
	if err != nil {
		return 0, err
	}

	target := discovery.Target

	var podName string
	err = b.hop(ctx, job, HopLocateTarget, func(ctx context.Context) *k8s.ExecError {
		pod, err := b.locator.WaitForAnyPod(ctx, target, b.policy)
		if err != nil {
			return &k8s.ExecError{Namespace: target.Namespace, Err: err}
		}
		podName = pod.Name
		return nil
	})
	if err != nil {
		return 0, err
	}

	exitCode := 0
	err = b.hop(ctx, job, HopShell, func(ctx context.Context) *k8s.ExecError {
		result, err := b.shell(ctx, target.Namespace, podName, streams)
		if err != nil {
			return &k8s.ExecError{Namespace: target.Namespace, Pod: podName, Container: k8s.SSHDContainerName, Err: err}
		}
		exitCode = result.ExitCode
		return nil
	})
	if err != nil {
		return 0, err
	}

	if exitCode == exitCodeInterrupted {
		b.logger.Debug("ignoring interrupted shell exit", logging.Job(job))
		exitCode = 0
	}
	return exitCode, nil
}

func (b *Bridge) shell(ctx context.Context, namespace, pod string, streams Streams) (*k8s.ExecResult, error) {
	t := term.TTY{In: streams.In, Out: streams.Out}
	t.Raw = t.IsTerminalIn()

	opts := k8s.ExecOptions{
		Stdin:  streams.In,
		Stdout: streams.Out,
		TTY:    t.Raw,
	}
	if t.Raw {
		if sizeQueue := t.MonitorSize(t.GetSize()); sizeQueue != nil {
			opts.SizeQueue = sizeQueue
		}
	}

	b.metrics.IncrementActiveSessions(ctx)
	defer b.metrics.DecrementActiveSessions(ctx)

	var result *k8s.ExecResult
	err := t.Safe(func() error {
		var err error
		result, err = b.exec(ctx, namespace, pod, k8s.SSHDContainerName, ShellCommand, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// exec runs command in its own span and records the pod operation.
func (b *Bridge) exec(ctx context.Context, namespace, pod, container string, command []string, opts k8s.ExecOptions) (*k8s.ExecResult, error) {
	ctx, span := instrumentation.StartSpan(ctx, "k8s.exec", instrumentation.NewSpanAttributeBuilder().
		WithOperation(instrumentation.OperationExec).
		WithNamespace(namespace).
		WithPod(pod, container).
		Build()...)

	start := time.Now()
	result, err := b.client.Exec(ctx, namespace, pod, container, command, opts)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	b.metrics.RecordPodOperation(ctx, instrumentation.OperationExec, namespace, status, time.Since(start))
	if result != nil {
		span.SetAttributes(attribute.Int("exit_code", result.ExitCode))
	}
	instrumentation.EndSpan(span, err)

	return result, err
}

// hop runs fn inside a span and completes the ExecError it returns with the job and hop.
func (b *Bridge) hop(ctx context.Context, job, hop string, fn func(ctx context.Context) *k8s.ExecError) error {
	ctx, span := instrumentation.StartHopSpan(ctx, job, hop)

	execErr := fn(ctx)
	if execErr == nil {
		instrumentation.EndSpan(span, nil)
		return nil
	}

	execErr.Job = job
	execErr.Hop = hop
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithNamespace(execErr.Namespace).
		WithPod(execErr.Pod, execErr.Container).
		Build()...)
	instrumentation.EndSpan(span, execErr)

	b.logger.Debug("attach hop failed", logging.Job(job), logging.Hop(hop), logging.Err(execErr.Err))
	return execErr
}
