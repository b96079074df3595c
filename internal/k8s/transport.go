package k8s

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/mesa-tools/cfs-observer/internal/logging"
)

// Secrets is the credential payload used to reach the control plane.
// Every field holds a base64 encoded PEM document.
type Secrets struct {
	CertificateAuthorityData string `json:"certificate-authority-data"`
	ClientCertificateData    string `json:"client-certificate-data"`
	ClientKeyData            string `json:"client-key-data"`
}

// ParseSecrets decodes a JSON secrets payload and checks that all three
// credential fields are present. The PEM material itself is validated by
// NewConnection.
func ParseSecrets(data []byte) (*Secrets, error) {
	var secrets Secrets
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, &TransportError{Reason: "invalid secrets payload", Err: err}
	}

	var missing []string
	if strings.TrimSpace(secrets.CertificateAuthorityData) == "" {
		missing = append(missing, SecretCAData)
	}
	if strings.TrimSpace(secrets.ClientCertificateData) == "" {
		missing = append(missing, SecretClientCertData)
	}
	if strings.TrimSpace(secrets.ClientKeyData) == "" {
		missing = append(missing, SecretClientKeyData)
	}
	if len(missing) > 0 {
		return nil, &TransportError{Reason: fmt.Sprintf("secrets payload is missing %s", strings.Join(missing, ", "))}
	}

	return &secrets, nil
}

// tlsMaterial holds the decoded PEM documents of a Secrets payload.
type tlsMaterial struct {
	caPEM   []byte
	certPEM []byte
	keyPEM  []byte
}

// decode base64-decodes and parses every credential field. It never touches the network.
func (s *Secrets) decode() (*tlsMaterial, error) {
	caPEM, err := decodeField(SecretCAData, s.CertificateAuthorityData)
	if err != nil {
		return nil, err
	}
	certPEM, err := decodeField(SecretClientCertData, s.ClientCertificateData)
	if err != nil {
		return nil, err
	}
	keyPEM, err := decodeField(SecretClientKeyData, s.ClientKeyData)
	if err != nil {
		return nil, err
	}

	if err := validateCertificateAuthority(caPEM); err != nil {
		return nil, err
	}

	if _, err := tls.X509KeyPair(certPEM, keyPEM); err != nil {
		return nil, &TransportError{Reason: "invalid client certificate or key", Err: err}
	}

	return &tlsMaterial{caPEM: caPEM, certPEM: certPEM, keyPEM: keyPEM}, nil
}

func decodeField(name, value string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, &TransportError{Reason: fmt.Sprintf("field %s is not valid base64", name), Err: err}
	}
	if block, _ := pem.Decode(decoded); block == nil {
		return nil, &TransportError{Reason: fmt.Sprintf("field %s does not contain a PEM block", name)}
	}
	return decoded, nil
}

// validateCertificateAuthority checks that the CA bundle holds at least one parseable certificate.
func validateCertificateAuthority(caPEM []byte) error {
	found := 0
	remaining := caPEM
	for {
		var block *pem.Block
		block, remaining = pem.Decode(remaining)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		if _, err := x509.ParseCertificate(block.Bytes); err != nil {
			return &TransportError{Reason: "invalid certificate authority", Err: err}
		}
		found++
	}
	if found == 0 {
		return &TransportError{Reason: "certificate authority bundle contains no certificate"}
	}
	return nil
}

// ConnectionConfig holds configuration for the cluster connection.
type ConnectionConfig struct {
	// APIURL is the base URL of the API server, e.g. https://10.252.1.12:6442.
	APIURL string

	// ProxyURL is an optional SOCKS5 proxy. A bare host:port means socks5://host:port.
	// When empty the API server is dialled directly.
	ProxyURL string

	// ServerName overrides the name used to verify the API server certificate.
	// Defaults to DefaultTLSServerName.
	ServerName string

	// Performance settings
	QPSLimit   float32
	BurstLimit int

	// Timeout bounds every request including log streams; zero means no timeout.
	Timeout time.Duration

	// Logging
	Logger Logger
}

// Connection is the handle to one cluster. It is immutable once built and
// safe for concurrent use by any number of goroutines.
type Connection struct {
	restConfig *rest.Config
	clientset  kubernetes.Interface
	logger     Logger
}

// NewConnection builds a Connection from the secrets payload. It either returns a
// fully usable Connection or a *TransportError; no network call is made.
func NewConnection(secrets *Secrets, config ConnectionConfig) (*Connection, error) {
	if secrets == nil {
		return nil, &TransportError{Reason: "secrets payload is required"}
	}

	apiURL, err := url.Parse(strings.TrimSpace(config.APIURL))
	if err != nil || apiURL.Host == "" {
		return nil, &TransportError{Reason: fmt.Sprintf("invalid API URL %q", config.APIURL), Err: err}
	}
	if apiURL.Scheme != "https" {
		return nil, &TransportError{Reason: fmt.Sprintf("API URL must use https, got %q", apiURL.Scheme)}
	}

	material, err := secrets.decode()
	if err != nil {
		return nil, err
	}

	proxyURL, err := parseProxyURL(config.ProxyURL)
	if err != nil {
		return nil, err
	}

	// Set defaults
	if config.ServerName == "" {
		config.ServerName = DefaultTLSServerName
	}
	if config.QPSLimit == 0 {
		config.QPSLimit = DefaultQPSLimit
	}
	if config.BurstLimit == 0 {
		config.BurstLimit = DefaultBurstLimit
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	restConfig := &rest.Config{
		Host: apiURL.String(),
		TLSClientConfig: rest.TLSClientConfig{
			ServerName: config.ServerName,
			CAData:     material.caPEM,
			CertData:   material.certPEM,
			KeyData:    material.keyPEM,
		},
		QPS:     config.QPSLimit,
		Burst:   config.BurstLimit,
		Timeout: config.Timeout,
	}

	// client-go honours socks5 proxies for plain requests and for SPDY upgrades.
	if proxyURL != nil {
		restConfig.Proxy = http.ProxyURL(proxyURL)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, &TransportError{Host: logging.SanitizeHost(restConfig.Host), Reason: "failed to create clientset", Err: err}
	}

	config.Logger.Debug("cluster connection built",
		"host", logging.SanitizeHost(restConfig.Host),
		"serverName", config.ServerName,
		"proxy", proxyURL != nil,
	)

	return &Connection{
		restConfig: restConfig,
		clientset:  clientset,
		logger:     config.Logger,
	}, nil
}

// parseProxyURL validates the optional SOCKS5 proxy address.
func parseProxyURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "socks5://" + raw
	}

	proxyURL, err := url.Parse(raw)
	if err != nil {
		return nil, &TransportError{Reason: "invalid proxy address", Err: err}
	}
	if proxyURL.Scheme != "socks5" {
		return nil, &TransportError{Reason: fmt.Sprintf("unsupported proxy scheme %q, only socks5 is supported", proxyURL.Scheme)}
	}
	if proxyURL.Host == "" {
		return nil, &TransportError{Reason: "proxy address has no host"}
	}
	return proxyURL, nil
}

// Host returns the API server URL.
func (c *Connection) Host() string {
	return c.restConfig.Host
}

// RESTConfig returns a copy of the underlying rest.Config.
func (c *Connection) RESTConfig() *rest.Config {
	return rest.CopyConfig(c.restConfig)
}

// Clientset returns the typed clientset bound to this connection.
func (c *Connection) Clientset() kubernetes.Interface {
	return c.clientset
}
