package discovery

import (
	"context"
	"errors"
	"fmt"

	"propsweep/internal/catalog"
	"propsweep/internal/config"
	"propsweep/internal/fetch"
	"propsweep/internal/logging"
	"propsweep/internal/normalize"
	"propsweep/internal/report"
	"propsweep/internal/transport"
)

// ErrPreflight aborts a run before any strategy executes.
var ErrPreflight = errors.New("preflight check failed")

// Client is the fetcher surface the engine needs.
type Client interface {
	Fetcher
	Do(ctx context.Context, s catalog.Strategy) (*transport.Response, error)
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	Aggregator    Options
	Report        report.Options
	PreflightPath string // empty skips the credential check
}

// Engine wires the catalog, the fetcher and the aggregator into one run.
type Engine struct {
	client  Client
	catalog catalog.Catalog
	opts    EngineOptions
}

// NewEngine creates an Engine over an already built catalog.
func NewEngine(client Client, c catalog.Catalog, opts EngineOptions) *Engine {
	return &Engine{client: client, catalog: c, opts: opts}
}

// NewFromConfig builds the fetcher, catalog and engine described by cfg.
// alternate may be nil, in which case alternate strategies are left out.
func NewFromConfig(cfg *config.Config, primary transport.Transport, alternate transport.AlternateTransport) (*Engine, error) {
	if primary == nil {
		return nil, errors.New("primary transport is required")
	}

	f := fetch.New(primary, alternate, normalize.New(cfg.Sweep.WrapperKeys), fetch.OptionsFromConfig(cfg.Retry, cfg.Sweep))

	copts := catalog.OptionsFromConfig(cfg.Sweep)
	if alternate == nil {
		copts.Alternate = false
	}
	c := catalog.NewBuilder(copts).Build()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	opts := EngineOptions{
		Aggregator:    OptionsFromConfig(cfg.Sweep, cfg.Report),
		PreflightPath: cfg.API.PreflightPath,
	}
	if cfg.Report.Expected > 0 {
		expected := cfg.Report.Expected
		opts.Report.Expected = &expected
	}
	return NewEngine(f, c, opts), nil
}

// Catalog returns the static catalog the engine runs.
func (e *Engine) Catalog() catalog.Catalog { return e.catalog }

// Discover runs the preflight check, the catalog and the enabled feedback
// phases, and builds the reconciliation report. Strategy failures are part of
// the report; only ErrPreflight and cancellation are returned as errors, and
// on cancellation the partial set and its report are still returned.
func (e *Engine) Discover(ctx context.Context) (*AggregateSet, report.Report, error) {
	if err := e.preflight(ctx); err != nil {
		return nil, report.Report{}, err
	}

	set, err := NewAggregator(e.client, e.opts.Aggregator).Run(ctx, e.catalog)
	if set == nil {
		return nil, report.Report{}, err
	}
	rep := report.Build(set, e.opts.Report)
	if err != nil {
		logging.DiscoveryWarn("run interrupted after %d strategies: %v", rep.Executed, err)
	}
	return set, rep, err
}

func (e *Engine) preflight(ctx context.Context) error {
	if e.opts.PreflightPath == "" {
		return nil
	}
	_, err := e.client.Do(ctx, catalog.Strategy{
		Label:     "preflight",
		Transport: transport.ProtocolPrimary,
		Path:      e.opts.PreflightPath,
	})
	switch {
	case err == nil:
		logging.Discovery("preflight ok")
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, fetch.ErrUnauthorized):
		return fmt.Errorf("%w: %w", ErrPreflight, err)
	default:
		// an endpoint that is missing or flaky says nothing about the credentials
		logging.DiscoveryWarn("preflight inconclusive, continuing: %v", err)
		return nil
	}
}
