// Package server initializes and runs the voicepay server: it builds the
// enrollment store, the analyzer and the voice authentication service from
// config, serves them over gRPC and shuts down on SIGINT or SIGTERM.
package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/voicepay/internal/logging"
	"github.com/dmitrijs2005/voicepay/internal/server/config"

	gs "github.com/dmitrijs2005/voicepay/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	components *Components
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	comps, err := Build(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	return &App{config: c, logger: logger, components: comps}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.components.Voice, app.components.Tokens, app.config.SecretKey)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

// Run serves until ctx is cancelled or a signal arrives, then closes the store.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"store", app.config.StoreDriver,
		"analyzer", app.config.AnalyzerProvider,
		"archive", app.config.ArchiveDriver,
		"threshold", app.config.SimilarityThreshold)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.components.Close(); err != nil {
		app.logger.Error(ctx, "closing store", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
