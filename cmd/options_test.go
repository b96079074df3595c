package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesa-tools/cfs-observer/internal/k8s"
	"github.com/mesa-tools/cfs-observer/internal/readiness"
)

const testSecretsJSON = `{
	"certificate-authority-data": "Y2E=",
	"client-certificate-data": "Y2VydA==",
	"client-key-data": "a2V5"
}`

func newTestOptions(t *testing.T, args ...string) *GlobalOptions {
	t.Helper()

	opts := &GlobalOptions{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return opts
}

func validOptions() *GlobalOptions {
	return &GlobalOptions{
		APIURL:            "https://10.252.1.12:6442",
		SecretsFile:       "secrets.json",
		QPSLimit:          k8s.DefaultQPSLimit,
		BurstLimit:        k8s.DefaultBurstLimit,
		PodAttempts:       10,
		ContainerAttempts: 150,
		PollDelay:         2 * time.Second,
	}
}

func TestGlobalOptions_Defaults(t *testing.T) {
	for _, env := range []string{envAPIURL, envSecretsFile, envSOCKS5, envLogLevel, envLogFormat, envQPS, envBurst, envTimeout} {
		t.Setenv(env, "")
	}

	opts := newTestOptions(t)

	assert.Empty(t, opts.APIURL)
	assert.Empty(t, opts.SecretsFile)
	assert.Empty(t, opts.ProxyURL)
	assert.Equal(t, k8s.DefaultTLSServerName, opts.TLSServerName)
	assert.Equal(t, float32(k8s.DefaultQPSLimit), opts.QPSLimit)
	assert.Equal(t, k8s.DefaultBurstLimit, opts.BurstLimit)
	assert.Zero(t, opts.Timeout)
	assert.Equal(t, "info", opts.LogLevel)
	assert.Equal(t, "text", opts.LogFormat)
	assert.Equal(t, readiness.ShortPolicy, opts.PodPolicy())
	assert.Equal(t, readiness.LongPolicy, opts.ContainerPolicy())
}

func TestGlobalOptions_EnvironmentDefaults(t *testing.T) {
	t.Setenv(envAPIURL, "https://api.example:6442")
	t.Setenv(envSecretsFile, "/etc/cfs/secrets.json")
	t.Setenv(envSOCKS5, "127.0.0.1:1080")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envLogFormat, "json")
	t.Setenv(envQPS, "5.5")
	t.Setenv(envBurst, "7")
	t.Setenv(envTimeout, "45s")

	opts := newTestOptions(t)

	assert.Equal(t, "https://api.example:6442", opts.APIURL)
	assert.Equal(t, "/etc/cfs/secrets.json", opts.SecretsFile)
	assert.Equal(t, "127.0.0.1:1080", opts.ProxyURL)
	assert.Equal(t, "debug", opts.LogLevel)
	assert.Equal(t, "json", opts.LogFormat)
	assert.Equal(t, float32(5.5), opts.QPSLimit)
	assert.Equal(t, 7, opts.BurstLimit)
	assert.Equal(t, 45*time.Second, opts.Timeout)
}

func TestGlobalOptions_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv(envSOCKS5, "127.0.0.1:1080")

	opts := newTestOptions(t,
		"--socks5-proxy", "socks5://proxy:9000",
		"--pod-attempts", "3",
		"--container-attempts", "4",
		"--poll-delay", "500ms",
	)

	assert.Equal(t, "socks5://proxy:9000", opts.ProxyURL)
	assert.Equal(t, readiness.Policy{MaxAttempts: 3, Delay: 500 * time.Millisecond}, opts.PodPolicy())
	assert.Equal(t, readiness.Policy{MaxAttempts: 4, Delay: 500 * time.Millisecond}, opts.ContainerPolicy())
}

func TestGlobalOptions_InvalidEnvironmentFallsBack(t *testing.T) {
	t.Setenv(envBurst, "many")
	t.Setenv(envTimeout, "soon")

	opts := newTestOptions(t)

	assert.Equal(t, k8s.DefaultBurstLimit, opts.BurstLimit)
	assert.Zero(t, opts.Timeout)
}

func TestGlobalOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(o *GlobalOptions)
		wantErr string
	}{
		{name: "valid", modify: func(*GlobalOptions) {}},
		{name: "missing api url", modify: func(o *GlobalOptions) { o.APIURL = " " }, wantErr: "--api-url is required"},
		{name: "missing secrets", modify: func(o *GlobalOptions) { o.SecretsFile = "" }, wantErr: "--secrets-file is required"},
		{name: "zero qps", modify: func(o *GlobalOptions) { o.QPSLimit = 0 }, wantErr: "--qps"},
		{name: "zero burst", modify: func(o *GlobalOptions) { o.BurstLimit = 0 }, wantErr: "--burst"},
		{name: "negative timeout", modify: func(o *GlobalOptions) { o.Timeout = -time.Second }, wantErr: "--timeout"},
		{name: "no pod attempts", modify: func(o *GlobalOptions) { o.PodAttempts = 0 }, wantErr: "--pod-attempts"},
		{name: "no container attempts", modify: func(o *GlobalOptions) { o.ContainerAttempts = 0 }, wantErr: "--container-attempts"},
		{name: "negative delay", modify: func(o *GlobalOptions) { o.PollDelay = -time.Second }, wantErr: "--poll-delay"},
		{name: "zero delay", modify: func(o *GlobalOptions) { o.PollDelay = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.modify(opts)

			err := opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadSecrets(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "secrets.json")
		require.NoError(t, os.WriteFile(path, []byte(testSecretsJSON), 0o600))

		secrets, err := readSecrets(path, strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, "Y2E=", secrets.CertificateAuthorityData)
		assert.Equal(t, "Y2VydA==", secrets.ClientCertificateData)
		assert.Equal(t, "a2V5", secrets.ClientKeyData)
	})

	t.Run("from stdin", func(t *testing.T) {
		secrets, err := readSecrets(stdinPath, strings.NewReader(testSecretsJSON))
		require.NoError(t, err)
		assert.Equal(t, "a2V5", secrets.ClientKeyData)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readSecrets(filepath.Join(t.TempDir(), "absent.json"), strings.NewReader(""))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("incomplete payload", func(t *testing.T) {
		_, err := readSecrets(stdinPath, strings.NewReader(`{"client-key-data": "a2V5"}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, k8s.ErrTransport)
	})
}

func TestNewEnvironment_Errors(t *testing.T) {
	t.Run("invalid log level", func(t *testing.T) {
		opts := validOptions()
		opts.LogLevel = "chatty"

		_, err := newEnvironment(t.Context(), opts, strings.NewReader(""), &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown log level")
	})

	t.Run("invalid options", func(t *testing.T) {
		opts := validOptions()
		opts.APIURL = ""

		_, err := newEnvironment(t.Context(), opts, strings.NewReader(""), &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--api-url is required")
	})

	t.Run("undecodable credentials", func(t *testing.T) {
		opts := validOptions()
		opts.SecretsFile = stdinPath

		_, err := newEnvironment(t.Context(), opts, strings.NewReader(testSecretsJSON), &bytes.Buffer{})
		require.Error(t, err)
		assert.ErrorIs(t, err, k8s.ErrTransport)
	})
}

func TestInterruptContext(t *testing.T) {
	t.Run("parent cancellation", func(t *testing.T) {
		parent, cancel := context.WithCancel(t.Context())
		ctx, stop := interruptContext(parent)
		defer stop()

		cancel()
		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})

	t.Run("SIGTERM cancels", func(t *testing.T) {
		ctx, stop := interruptContext(t.Context())
		defer stop()

		require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("context not cancelled by SIGTERM")
		}
	})
}
