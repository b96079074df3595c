package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesa-tools/cfs-observer/internal/logging"
)

// newCheckCmd creates the command verifying that the API server can be reached.
func newCheckCmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the Kubernetes API server is reachable",
		Long: `Check that the Kubernetes API server is reachable with the configured
credentials and proxy. TLS and timeout failures are reported separately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			env, err := newEnvironment(ctx, global, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.connection.CheckConnectivity(ctx); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s API server %s is reachable\n",
				color.New(color.FgGreen).Sprint("ok"), logging.SanitizeHost(env.connection.Host()))
			return nil
		},
	}
}
