// Package imagegen drives a Fooocus instance, either through its HTTP API or
// by operating its web UI in a headless browser.
package imagegen

import (
	"context"
	"fmt"

	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
	"github.com/sandevgo/muse/pkg/srv"
)

// Generator is an ImageGenerator with a service lifecycle.
type Generator interface {
	core.ImageGenerator
	srv.Service
}

func NewGenerator(ctx context.Context, cfg *config.ImageConfig, outputDir string) (Generator, error) {
	if cfg.OutputDir != "" {
		outputDir = cfg.OutputDir
	}

	log.FromCtx(ctx).Info().
		Str("mode", cfg.Mode).
		Str("url", cfg.URL).
		Str("output", outputDir).
		Msg("starting image generator")

	switch cfg.Mode {
	case config.FooocusModeAPI:
		return NewAPIClient(cfg.URL, outputDir), nil
	case config.FooocusModeBrowser:
		return NewBrowserDriver(BrowserConfig{
			URL:       cfg.URL,
			OutputDir: outputDir,
			Headless:  cfg.Headless,
			Bin:       cfg.BrowserBin,
		}), nil
	default:
		return nil, fmt.Errorf("unknown fooocus mode: %s", cfg.Mode)
	}
}
