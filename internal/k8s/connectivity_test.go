package k8s

import (
	"context"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTimeoutError implements net.Error for timeout testing.
type mockTimeoutError struct{}

func (mockTimeoutError) Error() string   { return "dial tcp: i/o timeout" }
func (mockTimeoutError) Timeout() bool   { return true }
func (mockTimeoutError) Temporary() bool { return true }

func newHealthServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DefaultHealthCheckPath {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCheckConnectivity(t *testing.T) {
	pki := newTestPKI(t)

	t.Run("healthy server trusted by the CA", func(t *testing.T) {
		server := newHealthServer(t)

		secrets := pki.secrets()
		serverCA := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})
		secrets.CertificateAuthorityData = base64.StdEncoding.EncodeToString(serverCA)

		// httptest certificates are issued for example.com.
		conn, err := NewConnection(secrets, ConnectionConfig{APIURL: server.URL, ServerName: "example.com"})
		require.NoError(t, err)

		assert.NoError(t, conn.CheckConnectivity(context.Background()))
	})

	t.Run("server signed by an unknown authority", func(t *testing.T) {
		server := newHealthServer(t)

		conn, err := NewConnection(pki.secrets(), ConnectionConfig{APIURL: server.URL, ServerName: "example.com"})
		require.NoError(t, err)

		err = conn.CheckConnectivity(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTransport))
		assert.True(t, errors.Is(err, ErrTLSHandshakeFailed))
		assert.False(t, errors.Is(err, ErrConnectionTimeout))
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := newHealthServer(t)

		conn, err := NewConnection(pki.secrets(), ConnectionConfig{APIURL: server.URL})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = conn.CheckConnectivity(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTransport))
	})
}

func TestWrapConnectivityError(t *testing.T) {
	const host = "https://10.0.0.1:6443"

	tests := []struct {
		name        string
		err         error
		wantTLS     bool
		wantTimeout bool
		wantReason  string
	}{
		{
			name:        "deadline exceeded",
			err:         context.DeadlineExceeded,
			wantTimeout: true,
			wantReason:  "connection timed out",
		},
		{
			name:       "cancelled",
			err:        context.Canceled,
			wantReason: "request cancelled",
		},
		{
			name:       "unknown authority",
			err:        errors.New("x509: certificate signed by unknown authority"),
			wantTLS:    true,
			wantReason: "certificate signed by unknown authority",
		},
		{
			name:       "server name mismatch",
			err:        errors.New("x509: certificate is valid for kube-apiserver, not other"),
			wantTLS:    true,
			wantReason: "certificate does not match the TLS server name",
		},
		{
			name:       "client certificate rejected",
			err:        errors.New("remote error: tls: bad certificate"),
			wantTLS:    true,
			wantReason: "client certificate rejected",
		},
		{
			name:        "net timeout",
			err:         fmt.Errorf("get healthz: %w", mockTimeoutError{}),
			wantTimeout: true,
			wantReason:  "connection timed out",
		},
		{
			name:       "generic failure",
			err:        errors.New("connection refused"),
			wantReason: "health check failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapConnectivityError(host, "health check failed", tt.err)

			var transportErr *TransportError
			require.ErrorAs(t, err, &transportErr)
			assert.Equal(t, tt.wantTLS, transportErr.TLS)
			assert.Equal(t, tt.wantTimeout, transportErr.Timeout)
			assert.Equal(t, tt.wantReason, transportErr.Reason)
			assert.Equal(t, "https://<redacted-ip>:6443", transportErr.Host)
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}

func TestIsTLSError(t *testing.T) {
	assert.False(t, isTLSError(nil))
	assert.True(t, isTLSError(errors.New("tls: handshake failure")))
	assert.True(t, isTLSError(errors.New("x509: certificate has expired")))
	assert.False(t, isTLSError(errors.New("connection refused")))
}

func TestIsTimeoutError(t *testing.T) {
	assert.False(t, isTimeoutError(nil))
	assert.True(t, isTimeoutError(mockTimeoutError{}))
	assert.True(t, isTimeoutError(errors.New("request Timed Out")))
	assert.False(t, isTimeoutError(errors.New("connection refused")))
}
