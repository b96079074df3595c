// Package session follows the logs of a CFS session.
//
// A session pod runs the git-clone init container and then the ansible
// container. Run waits for each in turn with the readiness policies and
// streams its log to a LineHandler:
//
//	report := session.New(conn, session.WithLogger(logger)).Run(ctx, "batcher-001", session.NewPrinter(os.Stdout))
//	if err := report.Err(); err != nil {
//		...
//	}
//
// The phases are best effort. An init container that never starts, or whose
// stream breaks, is recorded in the Report and the main phase still runs.
package session
