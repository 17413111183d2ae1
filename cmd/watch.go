package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sisu-network/proposal-relay/client"
	"github.com/spf13/cobra"
)

const requestTimeout = 30 * time.Second

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Control the watch campaign of a running relay",
	}

	cmd.PersistentFlags().String(flagUrl, defaultServerUrl, "rpc url of the relay server")
	cmd.AddCommand(
		watchStartCmd(),
		watchStopCmd(),
		watchStatusCmd(),
		watchLogsCmd(),
		watchHistoryCmd(),
	)

	return cmd
}

// withClient runs f with a client for the --url flag and a request timeout.
func withClient(cmd *cobra.Command, f func(ctx context.Context, c client.Client) error) error {
	url, err := cmd.Flags().GetString(flagUrl)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	return f(ctx, client.NewClient(url))
}

func watchStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a watch campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c client.Client) error {
				msg, err := c.WatchStart(ctx)
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
}

func watchStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running watch campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c client.Client) error {
				msg, err := c.WatchStop(ctx)
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
}

func watchStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a campaign is running and its poll count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c client.Client) error {
				isPolling, err := c.IsPolling(ctx)
				if err != nil {
					return err
				}
				count, err := c.PollCount(ctx)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "polling: %v\npolls: %d\n", isPolling, count)
				return nil
			})
		},
	}
}

func watchLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Print the records of the current or last campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c client.Client) error {
				logs, err := c.CollectedLogs(ctx)
				if err != nil {
					return err
				}

				for _, line := range logs {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	}
}

func watchHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the latest transfer outcomes of all campaigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := cmd.Flags().GetInt(flagLimit)
			if err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, c client.Client) error {
				history, err := c.TransferHistory(ctx, limit)
				if err != nil {
					return err
				}

				for _, line := range history {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	}

	cmd.Flags().Int(flagLimit, 50, "number of transfers to print")

	return cmd
}
