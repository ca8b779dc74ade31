// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
	"github.com/ericfisherdev/credaudit/internal/domain/port/driven"
	"github.com/ericfisherdev/credaudit/internal/logger"
)

// BatchConfig bounds how fast identities are looked up.
type BatchConfig struct {
	RequestsPerMinute    int
	Size                 int
	DelayBetweenRequests time.Duration
	DelayBetweenBatches  time.Duration
}

// RunOptions selects which identity groups a run processes.
type RunOptions struct {
	// Limit caps the number of identity groups processed; zero means all.
	Limit int
	// Resume skips identities whose records are all checked.
	Resume bool
}

// RunSummary reports what one RunBatch invocation did.
type RunSummary struct {
	Groups      int  `json:"groups"`
	Processed   int  `json:"processed"`
	Breached    int  `json:"breached"`
	Safe        int  `json:"safe"`
	Errors      int  `json:"errors"`
	RateLimited int  `json:"rate_limited"`
	Interrupted bool `json:"interrupted"`
}

// NeedsResume reports whether identities were left unresolved by this run.
func (s RunSummary) NeedsResume() bool {
	return s.Errors > 0 || s.Interrupted
}

// triggerRequest represents a manual batch trigger.
type triggerRequest struct {
	done chan triggerResult
}

type triggerResult struct {
	summary RunSummary
	err     error
}

// BatchService drives breach lookups across identity groups under a
// requests-per-minute budget and persists each result before moving on.
// Runs are serialized; at most one lookup is in flight at any time.
type BatchService struct {
	provider *BreachClientProvider
	store    driven.CredentialStore
	applier  *UpdateApplier
	cfg      BatchConfig
	clock    Clock
	log      *logger.Logger

	mu        sync.Mutex
	budget    RateBudget
	triggerCh chan triggerRequest
}

// NewBatchService creates a BatchService with all required dependencies.
func NewBatchService(
	provider *BreachClientProvider,
	store driven.CredentialStore,
	cfg BatchConfig,
	clock Clock,
	log *logger.Logger,
) *BatchService {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	return &BatchService{
		provider:  provider,
		store:     store,
		applier:   NewUpdateApplier(store, clock, log),
		cfg:       cfg,
		clock:     clock,
		log:       log.Component("batch"),
		budget:    NewRateBudget(cfg.RequestsPerMinute, time.Minute),
		triggerCh: make(chan triggerRequest),
	}
}

// RunBatch looks up every selected identity group in batches of cfg.Size.
// It returns driven.ErrNotConfigured before doing any work when no client is
// available. When ctx is canceled between identities it returns the partial
// summary with Interrupted set together with ctx.Err().
func (s *BatchService) RunBatch(ctx context.Context, opts RunOptions) (RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client := s.provider.Get()
	if client == nil {
		return RunSummary{}, driven.ErrNotConfigured
	}

	groups, err := s.selectGroups(ctx, opts)
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{Groups: len(groups)}
	start := s.clock.Now()
	s.log.Info().
		Int("groups", len(groups)).
		Bool("resume", opts.Resume).
		Int("limit", opts.Limit).
		Msg("batch run started")

	batches := partition(groups, s.cfg.Size)
	for bi, batch := range batches {
		for i, group := range batch {
			if ctx.Err() != nil {
				return s.interrupted(summary, ctx.Err())
			}

			if err := s.waitForBudget(ctx); err != nil {
				return s.interrupted(summary, err)
			}

			breaches, lookupErr := client.Lookup(ctx, group.Identity)
			if lookupErr != nil && ctx.Err() != nil {
				// Canceled mid-call: the identity stays pending and is not an error.
				return s.interrupted(summary, ctx.Err())
			}
			if errors.Is(lookupErr, driven.ErrUnauthorized) {
				s.log.Error().Err(lookupErr).Msg("breach service rejected the API key, aborting run")
				return summary, lookupErr
			}

			summary.Processed++
			s.record(ctx, group, ClassifyLookup(breaches, lookupErr), &summary)

			if i < len(batch)-1 {
				if err := s.clock.Sleep(ctx, s.cfg.DelayBetweenRequests); err != nil {
					return s.interrupted(summary, err)
				}
			}
		}

		if bi < len(batches)-1 {
			s.log.Debug().
				Int("batch", bi+1).
				Int("batches", len(batches)).
				Dur("delay", s.cfg.DelayBetweenBatches).
				Msg("batch complete, pausing")
			if err := s.clock.Sleep(ctx, s.cfg.DelayBetweenBatches); err != nil {
				return s.interrupted(summary, err)
			}
		}
	}

	s.log.Info().
		Int("processed", summary.Processed).
		Int("breached", summary.Breached).
		Int("safe", summary.Safe).
		Int("errors", summary.Errors).
		Int("rate_limited", summary.RateLimited).
		Dur("duration", s.clock.Now().Sub(start)).
		Msg("batch run complete")

	return summary, nil
}

// selectGroups loads eligible records, groups them and applies the resume
// filter and the group limit.
func (s *BatchService) selectGroups(ctx context.Context, opts RunOptions) ([]model.IdentityGroup, error) {
	records, err := s.store.ListEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible records: %w", err)
	}
	groups := GroupByIdentity(records)

	if opts.Resume {
		pending, err := s.store.UncheckedIdentities(ctx)
		if err != nil {
			return nil, fmt.Errorf("list unchecked identities: %w", err)
		}
		groups = filterPending(groups, pending)
	}

	if opts.Limit > 0 && len(groups) > opts.Limit {
		groups = groups[:opts.Limit]
	}
	return groups, nil
}

// record applies one outcome and updates the summary. A completed lookup is
// persisted even if ctx is canceled while the write is in flight.
func (s *BatchService) record(ctx context.Context, group model.IdentityGroup, outcome model.LookupOutcome, summary *RunSummary) {
	switch outcome.Kind {
	case model.OutcomeRateLimited:
		summary.RateLimited++
		summary.Errors++
		s.log.Warn().
			Str("identity", group.Identity).
			Err(outcome.Err).
			Msg("rate limited, identity left for resume")
		return
	case model.OutcomeError:
		summary.Errors++
		s.log.Error().
			Str("identity", group.Identity).
			Err(outcome.Err).
			Msg("lookup failed, identity left for resume")
		return
	}

	n, err := s.applier.Apply(context.WithoutCancel(ctx), group.Identity, outcome)
	if err != nil {
		summary.Errors++
		s.log.Error().
			Str("identity", group.Identity).
			Str("outcome", outcome.Kind.String()).
			Err(err).
			Msg("failed to persist breach state, identity left for resume")
		return
	}

	level := zerolog.InfoLevel
	if outcome.Kind == model.OutcomeFound {
		summary.Breached++
		level = zerolog.WarnLevel
	} else {
		summary.Safe++
	}
	s.log.WithLevel(level).
		Str("identity", group.Identity).
		Str("outcome", outcome.Kind.String()).
		Int("breaches", len(outcome.Breaches)).
		Int("members", n).
		Msg("identity checked")
}

// waitForBudget spends one call from the rate budget, sleeping until the
// oldest call in the rolling window expires when the window is full.
func (s *BatchService) waitForBudget(ctx context.Context) error {
	next, wait := s.budget.Take(s.clock.Now())
	s.budget = next
	if wait <= 0 {
		return nil
	}
	s.log.Debug().Dur("wait", wait).Msg("rate budget exhausted, waiting for a free slot")
	return s.clock.Sleep(ctx, wait)
}

func (s *BatchService) interrupted(summary RunSummary, err error) (RunSummary, error) {
	summary.Interrupted = true
	s.log.Warn().
		Int("processed", summary.Processed).
		Int("groups", summary.Groups).
		Msg("batch run interrupted, resume to continue")
	return summary, err
}

// Start runs a resume batch of cfg.Size groups immediately, then on every
// interval tick. It also serves manual triggers. Start blocks until the
// context is canceled.
func (s *BatchService) Start(ctx context.Context, interval time.Duration) {
	s.runScheduled(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("batch watcher stopped")
			return
		case <-ticker.C:
			s.runScheduled(ctx)
		case req := <-s.triggerCh:
			summary, err := s.RunBatch(ctx, s.scheduledOptions())
			req.done <- triggerResult{summary: summary, err: err}
		}
	}
}

// Trigger asks a running Start loop for an immediate resume batch and
// blocks until it completes or ctx is canceled.
func (s *BatchService) Trigger(ctx context.Context) (RunSummary, error) {
	req := triggerRequest{done: make(chan triggerResult, 1)}

	select {
	case s.triggerCh <- req:
	case <-ctx.Done():
		return RunSummary{}, ctx.Err()
	}

	select {
	case res := <-req.done:
		return res.summary, res.err
	case <-ctx.Done():
		return RunSummary{}, ctx.Err()
	}
}

func (s *BatchService) scheduledOptions() RunOptions {
	return RunOptions{Limit: s.cfg.Size, Resume: true}
}

func (s *BatchService) runScheduled(ctx context.Context) {
	if _, err := s.RunBatch(ctx, s.scheduledOptions()); err != nil && ctx.Err() == nil {
		s.log.Error().Err(err).Msg("scheduled batch failed")
	}
}

// partition splits groups into consecutive slices of at most size.
func partition(groups []model.IdentityGroup, size int) [][]model.IdentityGroup {
	var out [][]model.IdentityGroup
	for start := 0; start < len(groups); start += size {
		end := min(start+size, len(groups))
		out = append(out, groups[start:end])
	}
	return out
}

func filterPending(groups []model.IdentityGroup, pending []string) []model.IdentityGroup {
	want := make(map[string]struct{}, len(pending))
	for _, id := range pending {
		want[id] = struct{}{}
	}

	out := groups[:0:0]
	for _, g := range groups {
		if _, ok := want[g.Identity]; ok {
			out = append(out, g)
		}
	}
	return out
}
