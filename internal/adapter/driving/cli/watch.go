package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/credaudit/internal/adapter/driving/http"
	"github.com/ericfisherdev/credaudit/internal/config"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	Interval   time.Duration
	ListenAddr string
}

func newWatchCommand(rootOpts *RootOptions, d *deps) *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check one batch per interval and serve the status API",
		Long: `Run a resume batch immediately and then once per interval, so large
collections are checked gradually within the rate limit. The status API is
served on the listen address; POST /api/v1/check triggers a batch on demand.
Send SIGHUP to re-read the configuration and pick up a new HIBP API key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, rootOpts, opts, d)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "time between batches (overrides CREDAUDIT_BATCH_WATCH_INTERVAL)")
	cmd.Flags().StringVar(&opts.ListenAddr, "listen", "", "status API address (overrides CREDAUDIT_LISTEN_ADDR)")

	return cmd
}

func runWatch(cmd *cobra.Command, rootOpts *RootOptions, opts *WatchOptions, d *deps) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flags := &config.Config{
		ListenAddr: opts.ListenAddr,
		Batch:      config.Batch{WatchInterval: opts.Interval},
	}
	a, err := newApp(ctx, rootOpts, flags, d, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.log.Error().Err(closeErr).Msg("error closing database")
		}
	}()

	interval := a.cfg.Batch.WatchInterval
	addr := a.cfg.ListenAddr

	if !a.provider.HasClient() {
		a.log.Warn().Msg("no HIBP API key configured, scheduled batches will fail until one is set")
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := a.reloadClient(); err != nil {
					a.log.Error().Err(err).Msg("reload failed, keeping the current breach client")
				}
			}
		}
	}()

	batchDone := make(chan struct{})
	go func() {
		a.batch.Start(ctx, interval)
		close(batchDone)
	}()

	h := httphandler.NewHandler(a.progress, a.risk, a.batch, a.provider, a.log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           httphandler.NewServeMux(h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// A triggered batch can take minutes under the rate limit.
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", addr).Dur("interval", interval).Msg("watch started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-srvErr:
		stop()
	}
	a.log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("http server shutdown error")
	}

	<-batchDone
	a.log.Info().Msg("shutdown complete")
	return runErr
}
