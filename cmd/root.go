package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// globalOptions are bound to the persistent flags of rootCmd.
var globalOptions = &GlobalOptions{}

// rootCmd represents the base command for the cfs-observer application.
var rootCmd = &cobra.Command{
	Use:   "cfs-observer",
	Short: "Observe and attach to CFS sessions on a Kubernetes cluster",
	Long: `cfs-observer follows the Configuration Framework Service (CFS) jobs
running on a Kubernetes cluster. It streams the logs of a session's git-clone
init container and ansible container as they become available, and opens an
interactive shell in the image customization job of a CFS image session.

The cluster is reached with client certificates read from a secrets file,
optionally through a SOCKS5 proxy.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	// Errors are printed by Execute, which keeps a remote shell's exit status quiet.
	SilenceErrors: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// exitCodeError carries the exit status of a remote shell to the process.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("remote shell exited with status %d", e.code)
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "cfs-observer version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

func init() {
	globalOptions.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLogsCmd(globalOptions))
	rootCmd.AddCommand(newAttachCmd(globalOptions))
	rootCmd.AddCommand(newConfigMapCmd(globalOptions))
	rootCmd.AddCommand(newCheckCmd(globalOptions))
}
