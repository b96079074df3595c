package locator

import (
	corev1 "k8s.io/api/core/v1"
)

// Phase is the lifecycle state of a single container within a pod.
type Phase int

const (
	// PhaseUnknownAbsent means the pod has no status entry for the container yet.
	PhaseUnknownAbsent Phase = iota
	PhaseWaiting
	PhaseRunning
	PhaseTerminated
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseRunning:
		return "running"
	case PhaseTerminated:
		return "terminated"
	default:
		return "absent"
	}
}

// Started reports whether the container is running or has terminated, which is
// when its logs become readable.
func (p Phase) Started() bool {
	return p == PhaseRunning || p == PhaseTerminated
}

// ContainerPhase returns the phase of the named container. Init, regular and
// ephemeral container statuses are all searched. A nil pod or a missing status
// entry yields PhaseUnknownAbsent.
func ContainerPhase(pod *corev1.Pod, name string) Phase {
	status, ok := findContainerStatus(pod, name)
	if !ok {
		return PhaseUnknownAbsent
	}

	switch {
	case status.State.Terminated != nil:
		return PhaseTerminated
	case status.State.Running != nil:
		return PhaseRunning
	case status.State.Waiting != nil:
		return PhaseWaiting
	default:
		// The kubelet reports Waiting when it has nothing better to say.
		return PhaseWaiting
	}
}

// describeContainer returns a short state description for diagnostics,
// including the waiting reason when there is one.
func describeContainer(pod *corev1.Pod, name string) string {
	status, ok := findContainerStatus(pod, name)
	if !ok {
		return PhaseUnknownAbsent.String()
	}
	phase := ContainerPhase(pod, name)
	if w := status.State.Waiting; w != nil && w.Reason != "" {
		return phase.String() + ": " + w.Reason
	}
	return phase.String()
}

func findContainerStatus(pod *corev1.Pod, name string) (corev1.ContainerStatus, bool) {
	if pod == nil {
		return corev1.ContainerStatus{}, false
	}
	for _, statuses := range [][]corev1.ContainerStatus{
		pod.Status.InitContainerStatuses,
		pod.Status.ContainerStatuses,
		pod.Status.EphemeralContainerStatuses,
	} {
		for _, s := range statuses {
			if s.Name == name {
				return s, true
			}
		}
	}
	return corev1.ContainerStatus{}, false
}

// ContainerDeclared reports whether the pod spec lists a container called name
// among its init, regular or ephemeral containers.
func ContainerDeclared(pod *corev1.Pod, name string) bool {
	if pod == nil {
		return false
	}
	for _, containers := range [][]corev1.Container{pod.Spec.InitContainers, pod.Spec.Containers} {
		for _, c := range containers {
			if c.Name == name {
				return true
			}
		}
	}
	for _, c := range pod.Spec.EphemeralContainers {
		if c.Name == name {
			return true
		}
	}
	return false
}
