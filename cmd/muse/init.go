package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/pkg/env"
	"github.com/sandevgo/muse/pkg/log"
	"github.com/spf13/cobra"
)

var force bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a .env template into the runtime directory",
	Long:  `Creates the runtime directory and a .env file listing every setting with its default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)

		runtimePath := config.GetRuntimePath()
		envPath := filepath.Join(runtimePath, ".env")

		if _, err := os.Stat(envPath); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", envPath)
		}

		content, err := env.MarshalEnv(
			&config.AppConfig{},
			&config.LLMConfig{},
			&config.ImageConfig{},
			&config.DiscordConfig{},
			&config.TelegramConfig{},
		)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(runtimePath, 0755); err != nil {
			return fmt.Errorf("failed to create runtime directory: %w", err)
		}
		if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", envPath, err)
		}

		logger.Info().Str("path", envPath).Msg("wrote configuration template")
		logger.Info().Msg("Fill in DISCORD_TOKEN and your LLM key, then run 'muse start'.")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing .env")
	rootCmd.AddCommand(initCmd)
}
