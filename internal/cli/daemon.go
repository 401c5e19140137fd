package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"traking-shop/internal/services/valorant"
)

func newDaemonCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Re-import the catalog on a fixed interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				interval = cfg.DaemonInterval
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, interval, refreshingTiers(a.Client.TierCache(), func(ctx context.Context) error {
				return importOnce(ctx, a.Importer, cmd.OutOrStdout(), cmd.ErrOrStderr())
			}))
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Time between imports (default DAEMON_INTERVAL)")
	return cmd
}

// refreshingTiers drops cached content tiers before every run so each import
// classifies against the current tier list.
func refreshingTiers(tiers *valorant.TierCache, run func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		tiers.Reset()
		return run(ctx)
	}
}

// runDaemon runs an import right away and then on every tick until ctx is done.
// A failed run is logged and the next tick tries again.
func runDaemon(ctx context.Context, interval time.Duration, run func(context.Context) error) error {
	log.Info().Dur("interval", interval).Int("pid", os.Getpid()).Msg("catalog daemon started")

	iteration := 0
	tick := func() {
		if ctx.Err() != nil {
			return
		}
		iteration++
		logger := log.With().Int("iteration", iteration).Logger()
		start := time.Now()
		if err := run(logger.WithContext(ctx)); err != nil {
			logger.Error().Err(err).Msg("catalog import failed")
			return
		}
		logger.Info().Dur("took", time.Since(start)).Dur("next_in", interval).Msg("catalog import done")
	}

	tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("catalog daemon shutting down")
			return nil
		case <-ticker.C:
			tick()
		}
	}
}
