package cmd

import (
	"fmt"
	"os"

	"github.com/sisu-network/proposal-relay/config"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the relay configuration",
	}

	cmd.AddCommand(configInitCmd())

	return cmd
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString(flagOut)
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool(flagForce)
			if err != nil {
				return err
			}

			if _, err := os.Stat(out); err == nil && !force {
				return fmt.Errorf("%s already exists, use --%s to overwrite it", out, flagForce)
			}

			if err := config.WriteConfigFile(out, config.DefaultRelay()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s. Set %s before running serve.\n", out,
				config.PrivateKeyEnv)
			return nil
		},
	}

	cmd.Flags().String(flagOut, defaultConfigPath, "path of the config file to write")
	cmd.Flags().Bool(flagForce, false, "overwrite an existing file")

	return cmd
}
