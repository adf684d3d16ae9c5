package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/muse/pkg/log"
)

const (
	FooocusModeAPI     = "api"
	FooocusModeBrowser = "browser"
)

type ImageConfig struct {
	Enabled bool   `env:"IMAGE_ENABLED" envDefault:"true"`
	Mode    string `env:"FOOOCUS_MODE" envDefault:"api"`
	URL     string `env:"FOOOCUS_URL" envDefault:"http://127.0.0.1:8888"`

	// OutputDir is where rendered files land. Browser mode watches it; API
	// mode downloads into it. Empty means <runtime>/images.
	OutputDir string `env:"FOOOCUS_OUTPUT_DIR"`

	// Browser mode only.
	Headless   bool   `env:"FOOOCUS_HEADLESS" envDefault:"true"`
	BrowserBin string `env:"FOOOCUS_BROWSER_BIN"`

	Timeout     time.Duration `env:"IMAGE_TIMEOUT" envDefault:"4m"`
	SettleDelay time.Duration `env:"IMAGE_SETTLE_DELAY" envDefault:"5s"`

	// ShutdownTimeout bounds how long pending jobs may drain on shutdown.
	ShutdownTimeout time.Duration `env:"IMAGE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

func NewImageConfig(ctx context.Context) *ImageConfig {
	c := &ImageConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Image config")
	}
	return c
}
