// Package report reconciles a discovery run against the expected portfolio
// size and ranks strategies by how many entities only they contributed.
package report

import (
	"sort"
	"time"
)

// StrategyFailure describes a strategy that ended in a terminal error.
type StrategyFailure struct {
	Label     string `json:"label"`
	Status    int    `json:"status,omitempty"`
	Message   string `json:"message"`
	Attempts  int    `json:"attempts"`
	Exhausted bool   `json:"exhausted,omitempty"`
}

// Outcome is what one executed strategy contributed.
type Outcome struct {
	Label    string
	Category string
	Order    int // position in the executed catalog
	Fetched  int // raw entities returned
	Yield    int // ids admitted for the first time
	Dropped  int // raw entities without an id
	Duration time.Duration
	Failure  *StrategyFailure

	Interrupted bool // cancelled mid-walk; Yield counts what arrived before
	Missed      bool // single-entity lookup answered 404
}

// Source is a finished (or interrupted) run.
type Source interface {
	Len() int
	Outcomes() []Outcome
	Window() (started, finished time.Time)
}

// Options configures Build.
type Options struct {
	Expected *int // nil when no expectation was declared
}

// StrategyYield is one ranked row.
type StrategyYield struct {
	Label    string        `json:"label"`
	Category string        `json:"category"`
	Yield    int           `json:"yield"`
	Fetched  int           `json:"fetched"`
	Dropped  int           `json:"dropped,omitempty"`
	Duration time.Duration `json:"duration"`
	Failed   bool          `json:"failed,omitempty"`

	Interrupted bool `json:"interrupted,omitempty"`
}

// Report is the reconciliation summary of a run.
type Report struct {
	Total     int               `json:"total"`
	Expected  *int              `json:"expected,omitempty"`
	Reached   bool              `json:"reached"`
	Shortfall int               `json:"shortfall"`
	Ranked    []StrategyYield   `json:"ranked"`
	Failures  []StrategyFailure `json:"failures"`
	Dropped   int               `json:"dropped"`
	Executed  int               `json:"executed"`
	Duration  time.Duration     `json:"duration"`
	ZeroYield []string          `json:"zero_yield"`

	Interrupted []string `json:"interrupted,omitempty"`
	Missed      int      `json:"missed,omitempty"`
}

// Build summarizes src. Strategies are ranked by unique yield, highest
// first; ties keep catalog order. Shortfall is zero when nothing was
// expected or the expectation was met.
func Build(src Source, opts Options) Report {
	outcomes := src.Outcomes()
	started, finished := src.Window()

	r := Report{
		Total:     src.Len(),
		Ranked:    make([]StrategyYield, 0, len(outcomes)),
		Failures:  []StrategyFailure{},
		ZeroYield: []string{},
		Executed:  len(outcomes),
	}
	if !started.IsZero() && finished.After(started) {
		r.Duration = finished.Sub(started)
	}

	if opts.Expected != nil {
		expected := *opts.Expected
		r.Expected = &expected
		r.Reached = r.Total >= expected
		if !r.Reached {
			r.Shortfall = expected - r.Total
		}
	}

	for _, o := range outcomes {
		r.Ranked = append(r.Ranked, StrategyYield{
			Label:    o.Label,
			Category: o.Category,
			Yield:    o.Yield,
			Fetched:  o.Fetched,
			Dropped:  o.Dropped,
			Duration: o.Duration,
			Failed:   o.Failure != nil,

			Interrupted: o.Interrupted,
		})
		r.Dropped += o.Dropped
		switch {
		case o.Failure != nil:
			r.Failures = append(r.Failures, *o.Failure)
		case o.Interrupted:
			r.Interrupted = append(r.Interrupted, o.Label)
		case o.Yield == 0:
			r.ZeroYield = append(r.ZeroYield, o.Label)
		}
		if o.Missed {
			r.Missed++
		}
	}
	sort.SliceStable(r.Ranked, func(i, j int) bool { return r.Ranked[i].Yield > r.Ranked[j].Yield })
	return r
}

// Yield returns the unique yield recorded for label.
func (r Report) Yield(label string) (int, bool) {
	for _, y := range r.Ranked {
		if y.Label == label {
			return y.Yield, true
		}
	}
	return 0, false
}
