package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	hibpadapter "github.com/ericfisherdev/credaudit/internal/adapter/driven/hibp"
	sqliteadapter "github.com/ericfisherdev/credaudit/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/credaudit/internal/application"
	"github.com/ericfisherdev/credaudit/internal/config"
	"github.com/ericfisherdev/credaudit/internal/domain/port/driven"
	"github.com/ericfisherdev/credaudit/internal/logger"
)

// app is the wired object graph shared by every command.
type app struct {
	opts  *RootOptions
	flags *config.Config
	deps  *deps

	cfg      *config.Config
	log      *logger.Logger
	db       *sqliteadapter.DB
	store    *sqliteadapter.CredentialRepo
	provider *application.BreachClientProvider
	batch    *application.BatchService
	progress *application.ProgressService
	risk     *application.RiskService
}

// newApp loads configuration, opens and migrates the database, and wires the
// services. flags carries command-specific overrides and may be nil. Callers
// must Close the returned app.
func newApp(ctx context.Context, opts *RootOptions, flags *config.Config, d *deps, logOut io.Writer) (*app, error) {
	if flags == nil {
		flags = &config.Config{}
	}
	flags.DBPath = opts.DBPath

	cfg, err := config.LoadWithFlags(opts.ConfigFile, flags)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	var log *logger.Logger
	if opts.Format == "json" {
		log = logger.New(level, logOut)
	} else {
		log = logger.NewConsole(level, logOut)
	}

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	version, err := sqliteadapter.RunMigrations(db.Writer, log.Component("migrate"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug().Str("path", db.Path()).Uint("schema_version", version).Msg("database ready")

	store := sqliteadapter.NewCredentialRepo(db)

	client, err := newBreachClient(cfg, d, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	provider := application.NewBreachClientProvider(client)

	batchCfg := application.BatchConfig{
		RequestsPerMinute:    cfg.Batch.RequestsPerMinute,
		Size:                 cfg.Batch.Size,
		DelayBetweenRequests: cfg.Batch.DelayBetweenRequests,
		DelayBetweenBatches:  cfg.Batch.DelayBetweenBatches,
	}
	weights := application.Weights{
		Compromised: cfg.Scoring.Compromised,
		PerBreach:   cfg.Scoring.PerBreach,
		BreachCap:   cfg.Scoring.BreachCap,
		Critical:    cfg.Scoring.Critical,
		Stale:       cfg.Scoring.Stale,
		Weak:        cfg.Scoring.Weak,
		Duplicate:   cfg.Scoring.Duplicate,
		StaleAfter:  cfg.Scoring.StaleAfter,
	}

	return &app{
		opts:     opts,
		flags:    flags,
		deps:     d,
		cfg:      cfg,
		log:      log,
		db:       db,
		store:    store,
		provider: provider,
		batch:    application.NewBatchService(provider, store, batchCfg, d.clock, log),
		progress: application.NewProgressService(store),
		risk:     application.NewRiskService(store, application.NewScorer(weights, nil), d.clock, log),
	}, nil
}

// newBreachClient returns nil without error when no API key is configured;
// commands that need lookups then fail with driven.ErrNotConfigured.
func newBreachClient(cfg *config.Config, d *deps, log *logger.Logger) (driven.BreachClient, error) {
	if !cfg.HasAPIKey() {
		log.Debug().Msg("no HIBP API key configured, breach lookups disabled")
		return nil, nil
	}

	client, err := hibpadapter.NewClient(hibpadapter.Options{
		BaseURL:        cfg.HIBP.BaseURL,
		APIKey:         cfg.HIBP.APIKey,
		UserAgent:      cfg.HIBP.UserAgent,
		Timeout:        cfg.HIBP.Timeout,
		MaxRetries:     cfg.HIBP.MaxRetries,
		RetryBaseDelay: cfg.HIBP.RetryBaseDelay,
		DisableCache:   cfg.HIBP.DisableCache,
		Sleep:          d.clock.Sleep,
	}, log)
	if err != nil {
		if errors.Is(err, driven.ErrNotConfigured) {
			return nil, nil
		}
		return nil, fmt.Errorf("create breach client: %w", err)
	}
	return client, nil
}

// reloadClient re-reads the configuration and swaps the breach client so a
// rotated or newly added API key applies without restarting. Only the HIBP
// settings take effect; storage, batch and scoring settings need a restart.
func (a *app) reloadClient() error {
	cfg, err := config.LoadWithFlags(a.opts.ConfigFile, a.flags)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	client, err := newBreachClient(cfg, a.deps, a.log)
	if err != nil {
		return err
	}

	a.provider.Replace(client)
	a.cfg.HIBP = cfg.HIBP
	a.log.Info().Bool("configured", client != nil).Msg("breach client reloaded")
	return nil
}

// Close releases the database handles.
func (a *app) Close() error {
	return a.db.Close()
}
