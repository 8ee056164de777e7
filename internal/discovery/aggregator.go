// Package discovery runs the strategy catalog against the listing API and
// unions the results into one deduplicated set.
package discovery

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"propsweep/internal/catalog"
	"propsweep/internal/config"
	"propsweep/internal/logging"
)

// Fetcher executes one strategy. On a mid-walk failure it returns the
// entities gathered so far together with the error.
type Fetcher interface {
	Fetch(ctx context.Context, s catalog.Strategy) ([]map[string]any, error)
}

// Options configures an Aggregator.
type Options struct {
	MergePolicy MergePolicy
	Workers     int // <= 1 runs strictly in catalog order

	StopAtTarget bool
	Target       int

	SearchExpansion bool
	SearchLimit     int

	IDProbe     bool
	IDProbeSpan int
}

// OptionsFromConfig maps config sections onto Options.
func OptionsFromConfig(s config.SweepConfig, r config.ReportConfig) Options {
	return Options{
		MergePolicy:     MergePolicy(s.MergePolicy),
		Workers:         s.Workers,
		StopAtTarget:    s.StopAtTarget,
		Target:          r.Expected,
		SearchExpansion: s.SearchExpansion,
		SearchLimit:     s.SearchLimit,
		IDProbe:         s.IDProbe,
		IDProbeSpan:     s.IDProbeSpan,
	}
}

// Aggregator executes catalogs and admits their results.
type Aggregator struct {
	fetcher Fetcher
	opts    Options
	now     func() time.Time
}

// NewAggregator creates an Aggregator.
func NewAggregator(f Fetcher, opts Options) *Aggregator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Aggregator{fetcher: f, opts: opts, now: time.Now}
}

// Run executes c, then the feedback phases that are enabled. Strategy
// failures are recorded on the set and never stop the run. On cancellation
// the partial set is returned together with ctx.Err().
func (a *Aggregator) Run(ctx context.Context, c catalog.Catalog) (*AggregateSet, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	set := NewAggregateSet(a.opts.MergePolicy)
	set.markStarted(a.now())
	defer func() { set.markFinished(a.now()) }()

	logging.Discovery("running %d strategies (workers=%d, merge=%s)", len(c), a.opts.Workers, set.policy)
	if err := a.runPhase(ctx, set, c, 0); err != nil {
		return set, err
	}
	next := len(c)

	if a.opts.SearchExpansion && !a.reached(set) {
		ext := unexecuted(set, catalog.SearchExpansion(set.Entities(), a.opts.SearchLimit))
		logging.Discovery("search expansion: %d derived strategies", len(ext))
		if err := a.runPhase(ctx, set, ext, next); err != nil {
			return set, err
		}
		next += len(ext)
	}

	if a.opts.IDProbe && !a.reached(set) {
		probes := unexecuted(set, catalog.IDProbe(set.Entities(), a.opts.IDProbeSpan))
		logging.Discovery("id probe: %d candidate ids", len(probes))
		if err := a.runPhase(ctx, set, probes, next); err != nil {
			return set, err
		}
	}

	logging.Discovery("run complete: %d distinct entities", set.Len())
	return set, nil
}

func (a *Aggregator) runPhase(ctx context.Context, set *AggregateSet, c catalog.Catalog, base int) error {
	if a.opts.Workers > 1 {
		return a.runParallel(ctx, set, c, base)
	}
	for i, s := range c {
		if err := ctx.Err(); err != nil {
			return err
		}
		if a.reached(set) {
			logging.Discovery("target of %d reached, skipping remaining %d strategies", a.opts.Target, len(c)-i)
			return nil
		}
		a.execute(ctx, set, s, base+i)
	}
	return ctx.Err()
}

// runParallel bounds in-flight strategies to Workers. Only the admitted set
// is deterministic; which duplicate wins depends on completion order.
func (a *Aggregator) runParallel(ctx context.Context, set *AggregateSet, c catalog.Catalog, base int) error {
	var g errgroup.Group
	g.SetLimit(a.opts.Workers)

	for i, s := range c {
		if ctx.Err() != nil || a.reached(set) {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil || a.reached(set) {
				return nil
			}
			a.execute(ctx, set, s, base+i)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (a *Aggregator) execute(ctx context.Context, set *AggregateSet, s catalog.Strategy, order int) {
	start := a.now()
	raws, err := a.fetcher.Fetch(ctx, s)
	interrupted := err != nil && ctx.Err() != nil

	o := set.record(s, order, raws, err, interrupted, a.now().Sub(start))
	switch {
	case o.Interrupted:
		logging.DiscoveryDebug("%s interrupted after %d fetched, new %d", s.Label, o.Fetched, o.Yield)
		return
	case o.Missed:
		logging.DiscoveryDebug("%s: not found", s.Label)
		return
	case o.Failure != nil:
		logging.DiscoveryWarn("%s failed: %s (kept %d partial)", s.Label, o.Failure.Message, o.Yield)
		return
	}
	logging.DiscoveryDebug("%s: fetched %d, new %d, total %d", s.Label, o.Fetched, o.Yield, set.Len())
}

func (a *Aggregator) reached(set *AggregateSet) bool {
	return a.opts.StopAtTarget && a.opts.Target > 0 && set.Len() >= a.opts.Target
}

func unexecuted(set *AggregateSet, c catalog.Catalog) catalog.Catalog {
	out := c[:0]
	for _, s := range c {
		if !set.Executed(s.Label) {
			out = append(out, s)
		}
	}
	return out
}
