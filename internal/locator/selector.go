package locator

import (
	"k8s.io/apimachinery/pkg/labels"

	"github.com/mesa-tools/cfs-observer/internal/k8s"
)

// Target identifies the pods of one job.
type Target struct {
	// Namespace the pods are scheduled in.
	Namespace string

	// Selector is a label selector in its string form.
	Selector string

	// Job is the job identity reported in errors and logs.
	Job string
}

// SessionTarget returns the target for the pods of a CFS session.
func SessionTarget(session string) Target {
	return Target{
		Namespace: k8s.SessionNamespace,
		Selector:  SessionSelector(session),
		Job:       session,
	}
}

// ImageJobTarget returns the target for the image customization job carrying
// the derived job name. job is the session the lookup was made for.
func ImageJobTarget(job, jobName string) Target {
	return Target{
		Namespace: k8s.ImageNamespace,
		Selector:  JobNameSelector(jobName),
		Job:       job,
	}
}

// SessionSelector returns cfsession=<name>.
func SessionSelector(name string) string {
	return labels.SelectorFromSet(labels.Set{k8s.SessionLabelKey: name}).String()
}

// JobNameSelector returns job-name=<name>.
func JobNameSelector(name string) string {
	return labels.SelectorFromSet(labels.Set{k8s.JobNameLabelKey: name}).String()
}
