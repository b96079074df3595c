package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesa-tools/cfs-observer/internal/attach"
)

// newAttachCmd creates the command opening a shell in the image customization job of a session.
func newAttachCmd(global *GlobalOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "attach SESSION",
		Short: "Open a shell in the image customization job of a CFS session",
		Long: `Open an interactive bash in the sshd container of the image
customization job targeted by a CFS image session.

The job is found through the session's console operator pod, which knows the
IMS host of the image being customized. With --dry-run the job is only
located and printed.

When standard input is a terminal it is switched to raw mode and window size
changes are forwarded. The command exits with the status of the remote shell.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := args[0]
			if err := validateJobNames(args); err != nil {
				return err
			}
			if !dryRun && global.SecretsFile == stdinPath {
				return fmt.Errorf("--secrets-file %s cannot be used with an interactive shell, standard input is needed for the session", stdinPath)
			}

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			env, err := newEnvironment(ctx, global, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			bridge := attach.New(env.connection,
				attach.WithLogger(env.logger),
				attach.WithMetrics(env.metrics()),
				attach.WithPolicy(global.PodPolicy()),
			)

			if dryRun {
				discovery, err := bridge.Discover(ctx, job)
				if err != nil {
					return err
				}
				printDiscovery(cmd.OutOrStdout(), discovery)
				return nil
			}

			code, err := bridge.Attach(ctx, job, attach.Streams{
				In:  cmd.InOrStdin(),
				Out: cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}
			if code != 0 {
				return &exitCodeError{code: code}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Locate the image customization job without opening a shell")

	return cmd
}

func printDiscovery(w io.Writer, d *attach.Discovery) {
	_, _ = fmt.Fprintf(w, "session:      %s\n", d.Job)
	_, _ = fmt.Fprintf(w, "operator pod: %s\n", d.OperatorPod)
	_, _ = fmt.Fprintf(w, "target:       %s/%s\n", d.Target.Namespace, d.Target.Selector)
}
