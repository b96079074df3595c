package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/mesa-tools/cfs-observer/internal/k8s"
)

// Output formats of the configmap command.
const (
	outputYAML = "yaml"
	outputJSON = "json"
)

// newConfigMapCmd creates the command printing the data of a config map.
func newConfigMapCmd(global *GlobalOptions) *cobra.Command {
	var (
		namespace string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "configmap NAME",
		Short: "Print the data of a config map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputYAML && output != outputJSON {
				return fmt.Errorf("unsupported output format %q, use %s or %s", output, outputYAML, outputJSON)
			}

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			env, err := newEnvironment(ctx, global, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			data, err := env.connection.GetConfigMapData(ctx, namespace, args[0])
			if err != nil {
				return err
			}
			return writeConfigMapData(cmd.OutOrStdout(), data, output)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", k8s.SessionNamespace, "Namespace of the config map")
	cmd.Flags().StringVarP(&output, "output", "o", outputYAML, "Output format: yaml or json")

	return cmd
}

// writeConfigMapData prints data with sorted keys.
func writeConfigMapData(w io.Writer, data map[string]string, format string) error {
	var (
		out []byte
		err error
	)
	switch format {
	case outputJSON:
		out, err = json.MarshalIndent(data, "", "  ")
		out = append(out, '\n')
	default:
		out, err = yaml.Marshal(data)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config map data: %w", err)
	}

	_, err = w.Write(out)
	return err
}
