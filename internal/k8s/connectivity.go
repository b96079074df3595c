package k8s

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"

	"github.com/mesa-tools/cfs-observer/internal/logging"
)

// CheckConnectivity verifies that the API server can be reached through the
// configured transport. It performs a GET on the health endpoint, which exercises
// the proxy tunnel, the TLS handshake and the client certificate in one request.
//
// Failures are returned as *TransportError; TLS problems match
// ErrTLSHandshakeFailed and timeouts match ErrConnectionTimeout.
func (c *Connection) CheckConnectivity(ctx context.Context) error {
	validationCtx, cancel := context.WithTimeout(ctx, DefaultConnectivityTimeout)
	defer cancel()

	configCopy := rest.CopyConfig(c.restConfig)
	configCopy.APIPath = "/api"
	configCopy.GroupVersion = &schema.GroupVersion{Version: "v1"}
	configCopy.NegotiatedSerializer = scheme.Codecs.WithoutConversion()
	configCopy.Timeout = DefaultConnectivityTimeout

	restClient, err := rest.RESTClientFor(configCopy)
	if err != nil {
		return wrapConnectivityError(c.restConfig.Host, "failed to create REST client", err)
	}

	result := restClient.Get().AbsPath(DefaultHealthCheckPath).Do(validationCtx)
	if err := result.Error(); err != nil {
		return wrapConnectivityError(c.restConfig.Host, "health check failed", err)
	}

	c.logger.Debug("cluster connectivity verified", logging.Host(c.restConfig.Host))
	return nil
}

// wrapConnectivityError classifies a connectivity failure into a TransportError.
func wrapConnectivityError(host, reason string, err error) error {
	te := &TransportError{
		Host:   logging.SanitizeHost(host),
		Reason: reason,
		Err:    err,
	}

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		te.Reason = "connection timed out"
		te.Timeout = true
	case errors.Is(err, context.Canceled):
		te.Reason = "request cancelled"
	case isTLSError(err):
		te.Reason = extractTLSReason(err)
		te.TLS = true
	case isTimeoutError(err):
		te.Reason = "connection timed out"
		te.Timeout = true
	}

	return te
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	if err == nil {
		return false
	}

	var tlsRecordErr tls.RecordHeaderError
	if errors.As(err, &tlsRecordErr) {
		return true
	}

	errStr := err.Error()

	// Specific patterns only, to avoid false positives.
	tlsPatterns := []string{
		"tls:",
		"x509:",
		"certificate signed by",
		"certificate has expired",
		"certificate is not valid",
		"certificate is valid for",
		"handshake failure",
		"unknown authority",
		"bad certificate",
		"unsupported protocol",
	}

	for _, pattern := range tlsPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	timeoutPatterns := []string{
		"timeout",
		"timed out",
		"deadline exceeded",
		"i/o timeout",
	}

	for _, pattern := range timeoutPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// extractTLSReason maps common TLS errors to a readable reason.
func extractTLSReason(err error) string {
	if err == nil {
		return "unknown TLS error"
	}

	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "unknown authority"):
		return "certificate signed by unknown authority"
	case strings.Contains(errStr, "has expired"):
		return "certificate has expired"
	case strings.Contains(errStr, "not valid yet"):
		return "certificate is not yet valid"
	case strings.Contains(errStr, "certificate is valid for"), strings.Contains(errStr, "doesn't match"):
		return "certificate does not match the TLS server name"
	case strings.Contains(errStr, "bad certificate"):
		return "client certificate rejected"
	case strings.Contains(errStr, "handshake failure"):
		return "TLS handshake failed"
	case strings.Contains(errStr, "protocol version"):
		return "TLS protocol version mismatch"
	default:
		return "TLS error"
	}
}
