// Package locator finds the pods of a job by label selector and waits for them
// and their containers to become usable.
//
// Absence is never an error here: an empty pod list or a container without a
// status entry simply means "not ready yet". Only an exhausted polling budget
// is reported, as a *k8s.ResourceNotReadyError naming the job, the namespace
// and whether a pod or a container was missing.
package locator
