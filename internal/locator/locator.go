package locator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/mesa-tools/cfs-observer/internal/instrumentation"
	"github.com/mesa-tools/cfs-observer/internal/k8s"
	"github.com/mesa-tools/cfs-observer/internal/logging"
	"github.com/mesa-tools/cfs-observer/internal/readiness"
)

// Locator finds the pods and containers of a job and waits for them.
// It holds no mutable state and is safe for concurrent use.
type Locator struct {
	client      k8s.PodManager
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	pollOptions []readiness.Option
}

// Option configures a Locator.
type Option func(*Locator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) {
		l.logger = logger
	}
}

// WithMetrics records poll outcomes.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(l *Locator) {
		l.metrics = metrics
	}
}

// WithPollOptions passes options to every poll, e.g. readiness.WithSleepFunc.
func WithPollOptions(opts ...readiness.Option) Option {
	return func(l *Locator) {
		l.pollOptions = append(l.pollOptions, opts...)
	}
}

// New returns a Locator backed by client.
func New(client k8s.PodManager, opts ...Option) *Locator {
	l := &Locator{
		client: client,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FindPods lists the pods in namespace matching selector. An empty result is not an error.
func (l *Locator) FindPods(ctx context.Context, namespace, selector string) ([]corev1.Pod, error) {
	return l.client.ListPods(ctx, namespace, selector)
}

// WaitForAnyPod waits until at least one pod matches target and returns the first.
// Running out of attempts yields a *k8s.ResourceNotReadyError of kind pod.
func (l *Locator) WaitForAnyPod(ctx context.Context, target Target, policy readiness.Policy) (*corev1.Pod, error) {
	var found *corev1.Pod

	predicate := func(ctx context.Context) (bool, string, error) {
		pods, err := l.FindPods(ctx, target.Namespace, target.Selector)
		if err != nil {
			return false, "", err
		}
		if len(pods) == 0 {
			return false, "no pods", nil
		}
		found = &pods[0]
		return true, "pod " + found.Name, nil
	}

	err := l.poll(ctx, target, k8s.ResourceKindPod, target.Selector, policy, predicate)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// WaitForContainerRunningOrTerminated waits until the named container of the
// first pod matching target is running or has terminated. Pods are re-listed on
// every attempt, so a pod that is replaced or not yet scheduled only counts as
// not ready. Waiting containers and containers without a status entry are not
// ready either. A pod whose spec does not declare the container at all ends the
// wait at once with a *k8s.ContainerNotDeclaredError.
func (l *Locator) WaitForContainerRunningOrTerminated(ctx context.Context, target Target, container string, policy readiness.Policy) (*corev1.Pod, error) {
	var found *corev1.Pod

	predicate := func(ctx context.Context) (bool, string, error) {
		pods, err := l.FindPods(ctx, target.Namespace, target.Selector)
		if err != nil {
			return false, "", err
		}
		if len(pods) == 0 {
			return false, "no pods", nil
		}

		pod := &pods[0]
		if !ContainerDeclared(pod, container) {
			return false, "not declared", &k8s.ContainerNotDeclaredError{
				Job:       target.Job,
				Namespace: target.Namespace,
				Pod:       pod.Name,
				Container: container,
			}
		}
		if !ContainerPhase(pod, container).Started() {
			return false, describeContainer(pod, container), nil
		}
		found = pod
		return true, describeContainer(pod, container), nil
	}

	err := l.poll(ctx, target, k8s.ResourceKindContainer, container, policy, predicate)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// poll runs predicate under policy and turns an exhausted budget into a
// ResourceNotReadyError.
func (l *Locator) poll(ctx context.Context, target Target, kind, name string, policy readiness.Policy, predicate readiness.Predicate) error {
	logger := l.logger.With(
		logging.Job(target.Job),
		logging.Namespace(target.Namespace),
		logging.ResourceType(kind),
		logging.ResourceName(name),
	)

	opts := append([]readiness.Option{
		readiness.WithObserver(func(attempt int, state string) {
			logger.Debug("readiness attempt", logging.Attempt(attempt), logging.State(state))
		}),
	}, l.pollOptions...)

	logger.Debug("waiting for resource", slog.String("policy", policy.String()), slog.Duration("budget", policy.Budget()))

	start := time.Now()
	outcome, err := readiness.Poll(ctx, policy, predicate, opts...)

	result := instrumentation.PollResultReady
	switch {
	case err != nil:
		result = instrumentation.PollResultError
	case !outcome.Ready:
		result = instrumentation.PollResultNotReady
	}
	l.metrics.RecordPoll(ctx, kind, result, outcome.Attempts, time.Since(start))

	if err != nil {
		return fmt.Errorf("waiting for %s %s of job %s: %w", kind, name, target.Job, err)
	}
	if !outcome.Ready {
		logger.Warn("resource not ready", logging.Attempt(outcome.Attempts), logging.State(outcome.LastState))
		return &k8s.ResourceNotReadyError{
			Job:       target.Job,
			Namespace: target.Namespace,
			Kind:      kind,
			Name:      name,
			Attempts:  outcome.Attempts,
			LastState: outcome.LastState,
		}
	}

	logger.Debug("resource ready", logging.Attempt(outcome.Attempts), logging.State(outcome.LastState))
	return nil
}
