package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/argus/internal/app"
	"github.com/ternarybob/argus/internal/common"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Server lifecycle commands",
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the agent server",
	Long:  "Starts the agent server: storage, event bus, scheduler, watchers and the webhook listener.",
	RunE:  runServerStart,
}

func init() {
	serverCmd.AddCommand(serverStartCmd)
}

func runServerStart(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	common.PrintBanner(common.LoadVersionFromFile())

	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		application.Close()
		return fmt.Errorf("failed to start application: %w", err)
	}

	fmt.Printf("\nServer running on http://%s:%d\n", config.Server.Host, config.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down...")
	cancel()

	if err := application.Close(); err != nil {
		logger.Warn().Err(err).Msg("Shutdown finished with errors")
	}

	fmt.Println("\nServer stopped")
	return nil
}
