package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/muse/pkg/log"
)

type DiscordConfig struct {
	Token string `env:"DISCORD_TOKEN,required,notEmpty"`

	// GuildID registers slash commands on one guild, which applies instantly.
	// Empty registers them globally.
	GuildID string `env:"DISCORD_GUILD_ID"`
}

func NewDiscordConfig(ctx context.Context) *DiscordConfig {
	c := &DiscordConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Discord config")
	}
	return c
}
