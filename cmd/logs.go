package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/mesa-tools/cfs-observer/internal/session"
)

// newLogsCmd creates the command streaming the logs of one or more CFS sessions.
func newLogsCmd(global *GlobalOptions) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "logs SESSION [SESSION...]",
		Short: "Stream the logs of CFS sessions",
		Long: `Stream the logs of one or more CFS sessions.

For every session the git-clone init container is followed first and the
ansible container second. Each phase waits for its pod and container to
start, so the command can be run right after the session was created.
A failing init phase is reported and the ansible phase is still attempted.

With more than one session every line is prefixed with its session name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateJobNames(args); err != nil {
				return err
			}
			if concurrency < 0 {
				return fmt.Errorf("--concurrency must not be negative, got %d", concurrency)
			}

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			env, err := newEnvironment(ctx, global, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			orchestrator := session.New(env.connection,
				session.WithLogger(env.logger),
				session.WithMetrics(env.metrics()),
				session.WithPolicies(global.PodPolicy(), global.ContainerPolicy()),
				session.WithConcurrency(concurrency),
			)
			return runLogs(ctx, orchestrator, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0,
		"Maximum number of sessions followed at once; 0 follows all of them")

	return cmd
}

// runLogs follows jobs and prints their logs to w.
func runLogs(ctx context.Context, orchestrator *session.Orchestrator, jobs []string, w io.Writer) error {
	printer := session.NewPrinter(w)
	printer.PrefixJob = len(jobs) > 1

	_, err := orchestrator.RunAll(ctx, jobs, printer)
	return err
}

// validateJobNames rejects names that cannot be used in a label selector and duplicates.
func validateJobNames(jobs []string) error {
	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if job == "" {
			return fmt.Errorf("session name must not be empty")
		}
		if errs := validation.IsValidLabelValue(job); len(errs) > 0 {
			return fmt.Errorf("invalid session name %q: %s", job, strings.Join(errs, "; "))
		}
		if seen[job] {
			return fmt.Errorf("session %q given more than once", job)
		}
		seen[job] = true
	}
	return nil
}
