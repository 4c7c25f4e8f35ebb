package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jgoulah/meterbook/internal/api"
	"github.com/jgoulah/meterbook/internal/consumption"
	"github.com/jgoulah/meterbook/internal/publisher"
	"github.com/jgoulah/meterbook/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var publishInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serves the readings and consumption API under /api until interrupted. With
--publish-interval, consumption summaries are also published periodically to the sinks
enabled in the config.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&publishInterval, "publish-interval", 0, "Publish summaries this often (e.g. 1h, 0 = never)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pub *publisher.Publisher
	if publishInterval > 0 {
		pub, err = publisher.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("creating publisher: %w", err)
		}
		defer pub.Close()
	}

	handler := api.NewHandler(db, analysisOptions(cfg), logger, version)
	srv := server.New(cfg, handler, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})

	if pub != nil {
		g.Go(func() error {
			ticker := time.NewTicker(publishInterval)
			defer ticker.Stop()

			for {
				// Failed publishes are logged and retried on the next tick
				if _, err := publishOnce(ctx, cfg, db, pub, consumption.Filter{}, logger); err != nil && ctx.Err() == nil {
					logger.Error().Err(err).Msg("Periodic publish failed")
				}

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().Msg("Stopped")
	return nil
}
