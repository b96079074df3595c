// Package logging provides structured logging utilities for cfs-observer.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Build the process logger once from the command-line settings:
//
//	logger, err := logging.NewLogger(os.Stderr, "info", logging.FormatText)
//
// Attach job context and log with the shared attribute helpers:
//
//	logger = logging.WithJob(logger, "batcher-001")
//	logger.Debug("waiting for container",
//	    logging.Container("ansible"),
//	    logging.Attempt(3),
//	    logging.State("waiting: PodInitializing"))
//
// # Security Considerations
//
// API server URLs have IP addresses redacted by Host and SanitizedErr so that
// cluster topology does not leak into shared logs. Credentials are never logged.
package logging
