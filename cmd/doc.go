// Package cmd provides the command-line interface for cfs-observer.
//
// Command Structure:
//
//	cfs-observer logs SESSION [SESSION...]   # Streams init and ansible logs of CFS sessions
//	cfs-observer attach SESSION              # Opens a shell in the image customization job
//	cfs-observer attach SESSION --dry-run    # Only locates the image customization job
//	cfs-observer configmap NAME              # Prints the data of a config map
//	cfs-observer check                       # Checks that the API server is reachable
//	cfs-observer version                     # Shows version information
//
// Every cluster command needs the API server URL and a secrets file holding
// the base64 encoded CA, client certificate and client key:
//
//	cfs-observer --api-url https://10.252.1.12:6442 --secrets-file secrets.json logs batcher-001
//
// Flags default to environment variables where one is named in their help,
// e.g. CFS_OBSERVER_API_URL, CFS_OBSERVER_SECRETS_FILE and SOCKS5. The
// instrumentation is configured through its own environment variables, see
// package instrumentation.
package cmd
