package k8s

import "time"

const (
	// DefaultTLSServerName is the name the control-plane certificate is issued for.
	// It is independent of the address used to reach the API server.
	DefaultTLSServerName = "kube-apiserver"

	// Default performance settings. There is no default request timeout:
	// follow-mode log streams and interactive exec sessions are long-lived and
	// are bounded by their context instead.
	DefaultQPSLimit   = 20.0
	DefaultBurstLimit = 30

	// Connectivity check settings
	DefaultHealthCheckPath     = "/healthz"
	DefaultConnectivityTimeout = 10 * time.Second
)

// Namespaces the CFS jobs run in.
const (
	// SessionNamespace holds the CFS session pods and the console operator.
	SessionNamespace = "services"

	// ImageNamespace holds the image customization jobs targeted by CFS image sessions.
	ImageNamespace = "ims"
)

// Label keys used by the job scheduler to make pods discoverable.
const (
	SessionLabelKey = "cfsession"
	JobNameLabelKey = "job-name"
)

// Container names from the CFS job template. These must match the cluster exactly.
const (
	InitContainerName     = "git-clone"
	MainContainerName     = "ansible"
	OperatorContainerName = "cray-console-operator"
	SSHDContainerName     = "sshd"
)

// Secrets payload field names.
const (
	SecretCAData         = "certificate-authority-data"
	SecretClientCertData = "client-certificate-data"
	SecretClientKeyData  = "client-key-data"
)
