package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/mesa-tools/cfs-observer/internal/instrumentation"
	"github.com/mesa-tools/cfs-observer/internal/k8s"
	"github.com/mesa-tools/cfs-observer/internal/locator"
	"github.com/mesa-tools/cfs-observer/internal/logging"
	"github.com/mesa-tools/cfs-observer/internal/logstream"
	"github.com/mesa-tools/cfs-observer/internal/readiness"
)

// Phase names one of the two log phases of a session.
type Phase string

const (
	// PhaseInit follows the repository clone init container.
	PhaseInit Phase = "init"

	// PhaseMain follows the ansible container.
	PhaseMain Phase = "main"
)

// LineHandler receives the output of an orchestration.
// Implementations used with RunAll must be safe for concurrent use.
type LineHandler interface {
	// StartPhase is called once the phase container is ready, before its first line.
	StartPhase(job string, phase Phase, container, pod string)

	// Line delivers one log line. A non-nil error ends the phase.
	Line(job string, phase Phase, line string) error
}

// PhaseResult describes how one phase ended.
type PhaseResult struct {
	Phase     Phase
	Container string
	Pod       string
	Lines     int64
	Err       error
}

// Report collects the results of both phases of a session.
type Report struct {
	Job  string
	Init PhaseResult
	Main PhaseResult
}

// Err joins the errors of both phases. It is nil when both phases completed.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	return errors.Join(r.Init.Err, r.Main.Err)
}

// Orchestrator streams the logs of CFS sessions.
type Orchestrator struct {
	client  k8s.PodManager
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	podPolicy       readiness.Policy
	containerPolicy readiness.Policy
	pollOptions     []readiness.Option
	concurrency     int

	locator *locator.Locator
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics records poll, stream and line metrics.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = metrics
	}
}

// WithPolicies overrides the pod appearance and container start policies.
func WithPolicies(pod, container readiness.Policy) Option {
	return func(o *Orchestrator) {
		o.podPolicy = pod
		o.containerPolicy = container
	}
}

// WithPollOptions passes options to every readiness poll.
func WithPollOptions(opts ...readiness.Option) Option {
	return func(o *Orchestrator) {
		o.pollOptions = append(o.pollOptions, opts...)
	}
}

// WithConcurrency bounds the number of sessions RunAll follows at once.
// Zero or less means no bound.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

// New returns an Orchestrator using client for every cluster call.
func New(client k8s.PodManager, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:          client,
		logger:          logging.Discard(),
		podPolicy:       readiness.ShortPolicy,
		containerPolicy: readiness.LongPolicy,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.locator = locator.New(client,
		locator.WithLogger(o.logger),
		locator.WithMetrics(o.metrics),
		locator.WithPollOptions(o.pollOptions...),
	)
	return o
}

// Run follows the logs of the session job: first the init container, then
// the ansible container. A failed init phase is reported but does not stop
// the main phase. Run only returns early when ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, job string, handler LineHandler) *Report {
	target := locator.SessionTarget(job)
	logger := logging.WithJob(o.logger, job)

	report := &Report{Job: job}

	report.Init = o.runPhase(ctx, target, PhaseInit, k8s.InitContainerName, handler, logger)
	if report.Init.Err != nil {
		logger.Warn("init phase failed, continuing with main phase",
			logging.Phase(string(PhaseInit)),
			logging.Err(report.Init.Err))
	}

	if err := ctx.Err(); err != nil {
		report.Main = PhaseResult{Phase: PhaseMain, Container: k8s.MainContainerName, Err: err}
		return report
	}

	report.Main = o.runPhase(ctx, target, PhaseMain, k8s.MainContainerName, handler, logger)
	if report.Main.Err != nil {
		logger.Warn("main phase failed",
			logging.Phase(string(PhaseMain)),
			logging.Err(report.Main.Err))
	}

	return report
}

// RunAll follows several sessions concurrently over the same client. Reports
// are returned in the order of jobs; the error joins every phase error.
func (o *Orchestrator) RunAll(ctx context.Context, jobs []string, handler LineHandler) ([]*Report, error) {
	reports := make([]*Report, len(jobs))

	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}

	for i, job := range jobs {
		g.Go(func() error {
			reports[i] = o.Run(ctx, job, handler)
			return nil
		})
	}
	_ = g.Wait()

	errs := make([]error, 0, len(reports))
	for _, r := range reports {
		errs = append(errs, r.Err())
	}
	return reports, errors.Join(errs...)
}

func (o *Orchestrator) runPhase(ctx context.Context, target locator.Target, phase Phase, container string, handler LineHandler, logger *slog.Logger) (result PhaseResult) {
	result = PhaseResult{Phase: phase, Container: container}

	ctx, span := instrumentation.StartPhaseSpan(ctx, target.Job, string(phase),
		attribute.String(instrumentation.SpanAttrContainer, container))
	defer func() {
		span.SetAttributes(attribute.Int64(instrumentation.SpanAttrLines, result.Lines))
		instrumentation.EndSpan(span, result.Err)
	}()

	logger = logger.With(logging.Phase(string(phase)), logging.Container(container))

	// Only the init phase waits for the pod to appear. The container wait
	// re-lists pods on every attempt anyway.
	if phase == PhaseInit {
		if _, err := o.locator.WaitForAnyPod(ctx, target, o.podPolicy); err != nil {
			result.Err = err
			return result
		}
	}

	pod, err := o.locator.WaitForContainerRunningOrTerminated(ctx, target, container, o.containerPolicy)
	if err != nil {
		result.Err = err
		return result
	}
	result.Pod = pod.Name
	logger = logger.With(logging.Pod(pod.Name))
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}
	instrumentation.AddSpanEvent(span, "container.started", attribute.String(instrumentation.SpanAttrPod, pod.Name))

	handler.StartPhase(target.Job, phase, container, pod.Name)

	stream, err := o.openStream(ctx, target, pod.Name, container)
	if err != nil {
		result.Err = err
		o.metrics.RecordLogStream(ctx, string(phase), instrumentation.StatusError)
		return result
	}
	defer func() { _ = stream.Close() }()

	// Unblock a pending read when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer stop()

	logger.Debug("streaming container logs")

	err = stream.Drain(func(line string) error {
		result.Lines++
		return handler.Line(target.Job, phase, line)
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%s phase of job %s: %w", phase, target.Job, ctxErr)
	}
	result.Err = err

	o.metrics.RecordLogLines(ctx, string(phase), result.Lines)
	o.metrics.RecordLogStream(ctx, string(phase), status(err))

	logger.Debug("container log stream ended", slog.Int64("lines", result.Lines), logging.Err(err))
	return result
}

// openStream opens the follow-mode log stream of container inside its own span.
func (o *Orchestrator) openStream(ctx context.Context, target locator.Target, pod, container string) (*logstream.Stream, error) {
	attrs := instrumentation.NewSpanAttributeBuilder().
		WithJob(target.Job).
		WithOperation(instrumentation.OperationLogs).
		WithNamespace(target.Namespace).
		WithPod(pod, container).
		Build()
	ctx, span := instrumentation.StartSpan(ctx, "k8s.logs", attrs...)

	start := time.Now()
	stream, err := logstream.Open(ctx, o.client, target.Namespace, pod, container)
	o.metrics.RecordPodOperation(ctx, instrumentation.OperationLogs, target.Namespace, status(err), time.Since(start))

	instrumentation.EndSpan(span, err)
	return stream, err
}

func status(err error) string {
	if err != nil {
		return instrumentation.StatusError
	}
	return instrumentation.StatusSuccess
}
