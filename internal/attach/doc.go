// Package attach opens an interactive shell in the image customization job
// of a CFS session.
//
// The target container has a generated name, so it is found in two hops.
// First the session's operator pod is asked for the first cray-ims host of
// its ansible inventory. DeriveTargetJobName turns that host into the
// job-name label of the customization job, whose sshd container then runs
// an interactive bash.
//
// Every failure is a *k8s.ExecError naming the hop that failed.
package attach
