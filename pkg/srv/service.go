package srv

import (
	"context"

	"github.com/sandevgo/muse/pkg/log"
	"golang.org/x/sync/errgroup"
)

type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// StartServices runs every service in its own goroutine. A service that fails to
// start is fatal.
func StartServices(ctx context.Context, services []Service) {
	logger := log.FromCtx(ctx)

	g, gctx := errgroup.WithContext(ctx)
	for _, service := range services {
		g.Go(func() error {
			if err := service.Start(gctx); err != nil {
				logger.Fatal().Err(err).Msgf("%T failed to start", service)
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		logger.Debug().Msg("all services returned from Start")
	}()
}

// ShutdownServices blocks until ctx is done, then shuts services down in reverse
// registration order so transports stop before the state they depend on.
func ShutdownServices(ctx context.Context, services []Service) {
	<-ctx.Done()
	logger := log.FromCtx(ctx)

	for i := len(services) - 1; i >= 0; i-- {
		service := services[i]
		if err := service.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error().Err(err).Msgf("%T failed to shutdown", service)
		}
	}
}
