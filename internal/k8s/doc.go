// Package k8s builds the secure connection to the cluster control plane and
// exposes the handful of raw operations the observer needs.
//
// A Connection is built from a secrets payload holding three base64 encoded
// PEM documents (CA certificate, client certificate, client key). The
// transport authenticates with mutual TLS against a fixed TLS server name and
// may be tunnelled through a SOCKS5 proxy:
//
//	secrets, err := k8s.ParseSecrets(payload)
//	if err != nil {
//		return err
//	}
//	conn, err := k8s.NewConnection(secrets, k8s.ConnectionConfig{
//		APIURL:   "https://10.252.1.12:6442",
//		ProxyURL: "socks5://127.0.0.1:1080",
//	})
//
// NewConnection performs no network calls. CheckConnectivity can be used to
// verify the proxy, the handshake and the credentials up front.
//
// The operations are grouped into focused interfaces:
//
//   - PodManager: pod listing, log streams and exec sessions
//   - ConfigMapManager: config map lookups
//
// Higher level packages depend on the Client interface so they can be tested
// against fakes. All failures are typed (TransportError, ResourceNotReadyError,
// StreamError, ExecError) and match the sentinels in errors.go via errors.Is.
package k8s
