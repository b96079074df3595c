package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/buildkite/roko"
)

// Policy bounds a poll: at most MaxAttempts predicate evaluations with Delay
// between consecutive attempts.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// The two named policies used by every wait in the observer.
var (
	// ShortPolicy is used while waiting for a pod to be scheduled.
	ShortPolicy = Policy{MaxAttempts: 10, Delay: 2 * time.Second}

	// LongPolicy is used while waiting for a container to leave the waiting state,
	// which includes image pulls and init containers.
	LongPolicy = Policy{MaxAttempts: 150, Delay: 2 * time.Second}
)

// String implements fmt.Stringer.
func (p Policy) String() string {
	return fmt.Sprintf("%d attempts every %s", p.MaxAttempts, p.Delay)
}

// Budget returns the longest time a poll with this policy sleeps.
func (p Policy) Budget() time.Duration {
	if p.MaxAttempts <= 1 {
		return 0
	}
	return time.Duration(p.MaxAttempts-1) * p.Delay
}

// Predicate is one readiness query. It returns whether the resource is ready and
// a short description of the observed state. A resource that does not exist yet
// is reported as not ready; err is reserved for failures that retrying will not fix.
type Predicate func(ctx context.Context) (ready bool, state string, err error)

// Outcome is the result of a finished poll.
type Outcome struct {
	// Ready is false when the attempt budget was exhausted.
	Ready bool

	// Attempts is the number of predicate evaluations performed.
	Attempts int

	// LastState is the state reported by the last evaluation.
	LastState string
}

// Option configures a poll.
type Option func(*options)

type options struct {
	sleepFunc func(time.Duration)
	observer  func(attempt int, state string)
}

// WithSleepFunc replaces the sleep between attempts. Tests use it to run
// polls without waiting; nil keeps the default timer.
func WithSleepFunc(f func(time.Duration)) Option {
	return func(o *options) {
		o.sleepFunc = f
	}
}

// WithObserver registers a callback invoked after every evaluation.
func WithObserver(f func(attempt int, state string)) Option {
	return func(o *options) {
		o.observer = f
	}
}

// errNotReady marks an attempt that should be retried.
var errNotReady = errors.New("not ready")

// Poll evaluates predicate until it reports ready or policy.MaxAttempts
// evaluations have been made, sleeping policy.Delay between attempts and never
// after the last one.
//
// An exhausted budget is not an error: the returned Outcome has Ready unset.
// A predicate error or a cancelled context aborts the poll and is returned.
func Poll(ctx context.Context, policy Policy, predicate Predicate, opts ...Option) (Outcome, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var outcome Outcome
	err := roko.NewRetrier(
		roko.WithMaxAttempts(maxAttempts),
		roko.WithStrategy(roko.Constant(policy.Delay)),
		roko.WithSleepFunc(o.sleepFunc),
	).DoWithContext(ctx, func(r *roko.Retrier) error {
		if err := ctx.Err(); err != nil {
			r.Break()
			return err
		}

		outcome.Attempts++
		ready, state, err := predicate(ctx)
		outcome.LastState = state

		if o.observer != nil {
			o.observer(outcome.Attempts, state)
		}

		if err != nil {
			r.Break()
			return err
		}
		if !ready {
			return errNotReady
		}
		return nil
	})

	switch {
	case err == nil:
		outcome.Ready = true
		return outcome, nil
	case errors.Is(err, errNotReady):
		return outcome, nil
	default:
		return outcome, err
	}
}
