// Package readiness implements the bounded polling loop shared by every wait in
// the observer.
//
// A wait is expressed as a Predicate (what "ready" means) and a Policy (how
// many attempts and how far apart). Poll evaluates the predicate at most
// Policy.MaxAttempts times and never sleeps after the final attempt. Running
// out of attempts yields an Outcome with Ready unset; only predicate errors and
// context cancellation are returned as errors.
package readiness
