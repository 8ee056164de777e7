package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"propsweep/internal/config"
	"propsweep/internal/discovery"
	"propsweep/internal/export"
	"propsweep/internal/report"
	"propsweep/internal/transport"
)

var (
	discoverExpected  int
	discoverWorkers   int
	discoverOut       string
	discoverFormats   []string
	discoverDOCX      string
	discoverNoHistory bool
	discoverSearch    bool
	discoverProbe     bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Sweep the listing API and report every property found",
	Long: `Runs the full strategy catalog against the listing API, unions the results
by id and prints the reconciliation report.

Interrupting with Ctrl-C stops after the strategy in flight; the entities
found so far are still reported, exported and recorded.

Examples:
  propsweep discover --expected 412
  propsweep discover --workers 4 --format json --docx report.docx
  propsweep discover --search --probe`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&discoverExpected, "expected", 0, "Expected number of properties (overrides report.expected)")
	discoverCmd.Flags().IntVar(&discoverWorkers, "workers", 0, "Strategies to run concurrently (overrides sweep.workers)")
	discoverCmd.Flags().StringVar(&discoverOut, "out", "", "Export directory (overrides export.dir)")
	discoverCmd.Flags().StringSliceVar(&discoverFormats, "format", nil, "Export formats: json, csv (overrides export.formats)")
	discoverCmd.Flags().StringVar(&discoverDOCX, "docx", "", "Also write the report as a Word document")
	discoverCmd.Flags().BoolVar(&discoverNoHistory, "no-history", false, "Do not record this run in the history database")
	discoverCmd.Flags().BoolVar(&discoverSearch, "search", false, "Enable search expansion from discovered entities")
	discoverCmd.Flags().BoolVar(&discoverProbe, "probe", false, "Enable probing ids adjacent to discovered numeric ids")
}

// applyDiscoverFlags overlays set flags onto cfg.
func applyDiscoverFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("expected") {
		cfg.Report.Expected = discoverExpected
	}
	if flags.Changed("workers") {
		cfg.Sweep.Workers = discoverWorkers
	}
	if flags.Changed("out") {
		cfg.Export.Dir = discoverOut
	}
	if flags.Changed("format") {
		cfg.Export.Formats = discoverFormats
	}
	if flags.Changed("docx") {
		cfg.Report.DOCXPath = discoverDOCX
	}
	if discoverNoHistory {
		cfg.Export.History = false
	}
	if discoverSearch {
		cfg.Sweep.SearchExpansion = true
	}
	if discoverProbe {
		cfg.Sweep.IDProbe = true
	}
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyDiscoverFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := transport.NewHTTPClient(transport.OptionsFromConfig(cfg), nil)
	if err != nil {
		return err
	}
	var alternate transport.AlternateTransport
	if client.SupportsAlternate() {
		alternate = client
	}

	engine, err := discovery.NewFromConfig(cfg, client, alternate)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running %d strategies against %s\n\n", len(engine.Catalog()), cfg.API.BaseURL)

	started := time.Now()
	set, rep, runErr := engine.Discover(ctx)
	if set == nil {
		return runErr
	}
	interrupted := runErr != nil
	if interrupted {
		fmt.Fprintln(out, "Interrupted: reporting partial results")
	}
	logger.Info("discovery finished",
		zap.Int("total", rep.Total),
		zap.Int("executed", rep.Executed),
		zap.Int("failures", len(rep.Failures)),
		zap.Bool("interrupted", interrupted))

	if err := report.RenderText(out, rep); err != nil {
		return err
	}

	if len(cfg.Export.Formats) > 0 {
		paths, err := export.WriteAll(cfg.Export.Dir, cfg.Export.Formats, set.Entities())
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(out, "Wrote %s\n", p)
		}
	}

	if cfg.Report.DOCXPath != "" {
		if err := report.WriteDOCX(cfg.Report.DOCXPath, rep); err != nil {
			return fmt.Errorf("failed to write docx report: %w", err)
		}
		fmt.Fprintf(out, "Wrote %s\n", cfg.Report.DOCXPath)
	}

	if cfg.Export.History {
		if err := recordRun(rep, started, interrupted, cfg.Export.HistoryDB); err != nil {
			// non-fatal
			logger.Warn("failed to record run history", zap.Error(err))
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
	}

	if interrupted && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func recordRun(rep report.Report, started time.Time, interrupted bool, dbPath string) error {
	h, err := export.Open(dbPath)
	if err != nil {
		return err
	}
	defer h.Close()

	// the run's own context may already be cancelled
	_, err = h.Record(context.Background(), export.RecordFromReport(rep, started, time.Now(), interrupted))
	return err
}
