package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/sift-go/internal/conf"
)

// Command creates the config command, which prints the effective settings.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings as YAML",
		Long: `Print the settings resolved from the defaults, the config file and SIFTGO_
environment variables. The output is a valid config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := conf.GetSettings().YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	return cmd
}
