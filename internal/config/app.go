package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/muse/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"MUSE_RUNTIME_PATH" envDefault:".muse"`

	// Conversation
	SystemPrompt     string        `env:"SYSTEM_PROMPT" envDefault:"You are a helpful assistant."`
	HistoryLimit     int           `env:"HISTORY_LIMIT" envDefault:"20"`
	DedupTTL         time.Duration `env:"DEDUP_TTL" envDefault:"30s"`
	ResolveMaxDepth  int           `env:"RESOLVE_MAX_DEPTH" envDefault:"20"`
	MaxMessageLength int           `env:"MAX_MESSAGE_LENGTH" envDefault:"2000"`

	// Transport Flags
	EnableDiscord  bool `env:"ENABLE_DISCORD" envDefault:"true"`
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`
	EnableConsole  bool `env:"ENABLE_CONSOLE" envDefault:"true"`

	TranscriptEnabled bool `env:"TRANSCRIPT_ENABLED" envDefault:"true"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	if !filepath.IsAbs(c.RuntimePath) {
		c.RuntimePath = GetRuntimePath()
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "muse.db")
}

func (c AppConfig) GetImagesPath() string {
	return filepath.Join(c.RuntimePath, "images")
}

func (c AppConfig) GetHistoryFilePath() string {
	return filepath.Join(c.RuntimePath, "console_history")
}
