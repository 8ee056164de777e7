package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"propsweep/internal/catalog"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the strategy catalog without running it",
	RunE:  runStrategies,
}

func runStrategies(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := catalog.OptionsFromConfig(cfg.Sweep)
	if cfg.API.GraphQLPath == "" {
		opts.Alternate = false
	}
	c := catalog.NewBuilder(opts).Build()
	if err := c.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, s := range c {
		fmt.Fprintf(out, "%3d  %s\n", i+1, s)
	}
	fmt.Fprintf(out, "\n%d strategies", len(c))
	if cfg.Sweep.SearchExpansion {
		fmt.Fprint(out, " (+ search expansion)")
	}
	if cfg.Sweep.IDProbe {
		fmt.Fprintf(out, " (+ id probe, span %d)", cfg.Sweep.IDProbeSpan)
	}
	fmt.Fprintln(out)
	return nil
}
