package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/mesa-tools/cfs-observer/internal/instrumentation"
	"github.com/mesa-tools/cfs-observer/internal/k8s"
	"github.com/mesa-tools/cfs-observer/internal/logging"
	"github.com/mesa-tools/cfs-observer/internal/readiness"
)

// stdinPath selects standard input as the secrets source.
const stdinPath = "-"

// GlobalOptions holds the configuration shared by every command that talks to a cluster.
type GlobalOptions struct {
	// Cluster connection
	APIURL        string
	SecretsFile   string
	ProxyURL      string
	TLSServerName string

	// Kubernetes client settings
	QPSLimit   float32
	BurstLimit int
	Timeout    time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Readiness polling overrides
	PodAttempts       int
	ContainerAttempts int
	PollDelay         time.Duration
}

// AddFlags registers the options on fs with defaults taken from the environment.
func (o *GlobalOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.APIURL, "api-url", envOrDefault(envAPIURL, ""),
		"Kubernetes API server URL (env "+envAPIURL+")")
	fs.StringVar(&o.SecretsFile, "secrets-file", envOrDefault(envSecretsFile, ""),
		"JSON file with base64 encoded CA, client certificate and key; '-' reads stdin (env "+envSecretsFile+")")
	fs.StringVar(&o.ProxyURL, "socks5-proxy", envOrDefault(envSOCKS5, ""),
		"SOCKS5 proxy used to reach the API server, host:port or socks5://host:port (env "+envSOCKS5+")")
	fs.StringVar(&o.TLSServerName, "tls-server-name", k8s.DefaultTLSServerName,
		"Name the API server certificate is verified against")

	fs.Float32Var(&o.QPSLimit, "qps", float32EnvOrDefault(envQPS, k8s.DefaultQPSLimit),
		"Kubernetes client QPS limit")
	fs.IntVar(&o.BurstLimit, "burst", intEnvOrDefault(envBurst, k8s.DefaultBurstLimit),
		"Kubernetes client burst limit")
	fs.DurationVar(&o.Timeout, "timeout", durationEnvOrDefault(envTimeout, 0),
		"Timeout for every API request including log streams; 0 disables it")

	fs.StringVar(&o.LogLevel, "log-level", envOrDefault(envLogLevel, "info"),
		"Log level: debug, info, warn or error")
	fs.StringVar(&o.LogFormat, "log-format", envOrDefault(envLogFormat, logging.FormatText),
		"Log format: text or json")

	fs.IntVar(&o.PodAttempts, "pod-attempts", readiness.ShortPolicy.MaxAttempts,
		"Attempts made while waiting for a pod to appear")
	fs.IntVar(&o.ContainerAttempts, "container-attempts", readiness.LongPolicy.MaxAttempts,
		"Attempts made while waiting for a container to start")
	fs.DurationVar(&o.PollDelay, "poll-delay", readiness.ShortPolicy.Delay,
		"Delay between readiness attempts")
}

// Validate checks the options needed to build a cluster connection.
func (o *GlobalOptions) Validate() error {
	if strings.TrimSpace(o.APIURL) == "" {
		return fmt.Errorf("--api-url is required (or set %s)", envAPIURL)
	}
	if strings.TrimSpace(o.SecretsFile) == "" {
		return fmt.Errorf("--secrets-file is required (or set %s)", envSecretsFile)
	}
	if o.QPSLimit <= 0 {
		return fmt.Errorf("--qps must be positive, got %v", o.QPSLimit)
	}
	if o.BurstLimit <= 0 {
		return fmt.Errorf("--burst must be positive, got %d", o.BurstLimit)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("--timeout must not be negative, got %s", o.Timeout)
	}
	if o.PodAttempts < 1 {
		return fmt.Errorf("--pod-attempts must be at least 1, got %d", o.PodAttempts)
	}
	if o.ContainerAttempts < 1 {
		return fmt.Errorf("--container-attempts must be at least 1, got %d", o.ContainerAttempts)
	}
	if o.PollDelay < 0 {
		return fmt.Errorf("--poll-delay must not be negative, got %s", o.PollDelay)
	}
	return nil
}

// PodPolicy is the policy used while waiting for pods to appear.
func (o *GlobalOptions) PodPolicy() readiness.Policy {
	return readiness.Policy{MaxAttempts: o.PodAttempts, Delay: o.PollDelay}
}

// ContainerPolicy is the policy used while waiting for containers to start.
func (o *GlobalOptions) ContainerPolicy() readiness.Policy {
	return readiness.Policy{MaxAttempts: o.ContainerAttempts, Delay: o.PollDelay}
}

// readSecrets loads the secrets payload from path, or from stdin when path is "-".
func readSecrets(path string, stdin io.Reader) (*k8s.Secrets, error) {
	var (
		data []byte
		err  error
	)
	if path == stdinPath {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets from %s: %w", path, err)
	}
	return k8s.ParseSecrets(data)
}

// interruptContext derives the context a command runs under. It is cancelled
// on SIGINT or SIGTERM so open streams and polls are released.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// environment is what a cluster command runs with.
type environment struct {
	logger     *slog.Logger
	connection *k8s.Connection
	provider   *instrumentation.Provider
}

// newEnvironment builds the logger, instrumentation and cluster connection
// described by opts. The returned environment must be closed.
func newEnvironment(ctx context.Context, opts *GlobalOptions, stdin io.Reader, stderr io.Writer) (*environment, error) {
	logger, err := logging.NewLogger(stderr, opts.LogLevel, opts.LogFormat)
	if err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	secrets, err := readSecrets(opts.SecretsFile, stdin)
	if err != nil {
		return nil, err
	}

	connection, err := k8s.NewConnection(secrets, k8s.ConnectionConfig{
		APIURL:     opts.APIURL,
		ProxyURL:   opts.ProxyURL,
		ServerName: opts.TLSServerName,
		QPSLimit:   opts.QPSLimit,
		BurstLimit: opts.BurstLimit,
		Timeout:    opts.Timeout,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = rootCmd.Version
	provider, err := instrumentation.NewProvider(ctx, instrumentationConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	if err := provider.ServeMetrics(); err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}
	if provider.Enabled() {
		logger.Debug("OpenTelemetry instrumentation enabled",
			slog.String("metrics", instrumentationConfig.MetricsExporter),
			slog.String("tracing", instrumentationConfig.TracingExporter))
	}

	return &environment{
		logger:     logger,
		connection: connection,
		provider:   provider,
	}, nil
}

// Close flushes instrumentation.
func (e *environment) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.provider.Shutdown(ctx); err != nil {
		e.logger.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}

func (e *environment) metrics() *instrumentation.Metrics {
	return e.provider.Metrics()
}
