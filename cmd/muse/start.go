package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/muse/pkg/log"
	"github.com/sandevgo/muse/pkg/srv"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the bot",
	Long:  `Connects the configured transports (Discord, Telegram, console) and starts the image queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting muse")

		// Define services using the setup.go logic
		services := NewServices(ctx, stop)

		// Start services
		srv.StartServices(ctx, services)

		// Wait for shutdown signal, then restore default signal handling so a
		// second interrupt kills the process
		<-ctx.Done()
		stop()
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("muse has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
