package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sisu-network/lib/log"
	"github.com/sisu-network/proposal-relay/chains/eth"
	"github.com/sisu-network/proposal-relay/config"
	"github.com/sisu-network/proposal-relay/core"
	"github.com/sisu-network/proposal-relay/database"
	"github.com/sisu-network/proposal-relay/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay and its rpc server",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString(flagConfig)
			if err != nil {
				return err
			}
			start, err := cmd.Flags().GetBool(flagStart)
			if err != nil {
				return err
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			return serve(cfg, start)
		},
	}

	cmd.Flags().String(flagConfig, defaultConfigPath, "path to the toml config file")
	cmd.Flags().Bool(flagStart, false, "start a watch campaign right away")

	return cmd
}

func serve(cfg *config.Relay, start bool) error {
	db := database.NewDb(cfg)
	if err := db.Init(); err != nil {
		return err
	}
	defer db.Close()

	sourceClient := eth.NewEthClients(cfg.Source.ChainConfig)
	var targetClient eth.EthClient
	if cfg.Action == config.ActionTransfer {
		targetClient = eth.NewEthClients(cfg.Target.ChainConfig)
	}

	processor, err := core.NewProcessor(cfg, db, sourceClient, targetClient)
	if err != nil {
		return err
	}
	processor.Start()

	handler, err := server.NewRpcHandler(server.NewApi(processor))
	if err != nil {
		return err
	}
	s := server.NewServer(handler, cfg.ServerPort)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run()
	}()

	if start {
		msg, err := processor.WatchStart()
		if err != nil {
			log.Error("Cannot start watching: ", err)
		} else {
			log.Info(msg)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal ", sig, ", shutting down")
	case err = <-errCh:
		log.Error("Server stopped: ", err)
	}

	processor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := s.Shutdown(ctx); shutdownErr != nil {
		log.Error("Cannot shut down server: ", shutdownErr)
	}

	return err
}
