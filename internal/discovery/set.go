package discovery

import (
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"propsweep/internal/catalog"
	"propsweep/internal/fetch"
	"propsweep/internal/logging"
	"propsweep/internal/property"
	"propsweep/internal/report"
)

// MergePolicy decides what happens when an already admitted id is seen again.
type MergePolicy string

const (
	// MergeFirstSeen keeps the earlier record whole.
	MergeFirstSeen MergePolicy = "first-seen"
	// MergeFillMissing keeps every earlier value but fills fields the earlier
	// record left empty.
	MergeFillMissing MergePolicy = "fill-missing"
)

// AggregateSet is the deduplicated result of one run. It is safe for
// concurrent admission.
type AggregateSet struct {
	mu       sync.Mutex
	policy   MergePolicy
	index    map[string]int
	entities []property.Entity
	outcomes map[string]*report.Outcome
	started  time.Time
	finished time.Time
}

// NewAggregateSet creates an empty set.
func NewAggregateSet(policy MergePolicy) *AggregateSet {
	if policy == "" {
		policy = MergeFirstSeen
	}
	return &AggregateSet{
		policy:   policy,
		index:    make(map[string]int),
		outcomes: make(map[string]*report.Outcome),
	}
}

// Admit maps raws into entities and adds unseen ids. It returns how many ids
// were new and how many raws were dropped for lacking an id. Admitting the
// same raws again changes nothing.
func (s *AggregateSet) Admit(label string, raws []map[string]any) (admitted, dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, raw := range raws {
		e, err := property.FromRaw(raw)
		if err != nil {
			dropped++
			continue
		}
		if i, seen := s.index[e.ID]; seen {
			if s.policy == MergeFillMissing {
				s.entities[i].FillMissing(e)
			}
			continue
		}
		s.index[e.ID] = len(s.entities)
		s.entities = append(s.entities, e)
		admitted++
	}
	if dropped > 0 {
		logging.DiscoveryWarn("%s: dropped %d entities without id", label, dropped)
	}
	return admitted, dropped
}

// record admits raws on behalf of a strategy and stores its outcome. An
// interrupted strategy keeps its yield but is not a failure, nor is a probe
// for an id the API does not know.
func (s *AggregateSet) record(st catalog.Strategy, order int, raws []map[string]any, err error, interrupted bool, took time.Duration) report.Outcome {
	admitted, dropped := s.Admit(st.Label, raws)

	o := report.Outcome{
		Label:    st.Label,
		Category: string(st.Category),
		Order:    order,
		Fetched:  len(raws),
		Yield:    admitted,
		Dropped:  dropped,
		Duration: took,
	}
	switch {
	case interrupted:
		o.Interrupted = true
	case err != nil && st.Category == catalog.CategoryProbe && notFound(err):
		o.Missed = true
	case err != nil:
		o.Failure = failureOf(st.Label, err)
	}

	s.mu.Lock()
	s.outcomes[st.Label] = &o
	s.mu.Unlock()
	return o
}

func failureOf(label string, err error) *report.StrategyFailure {
	f := &report.StrategyFailure{Label: label, Message: err.Error(), Attempts: 1}
	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		f.Status = fe.Status
		f.Message = fe.Message
		f.Attempts = fe.Attempts
		f.Exhausted = fe.Exhausted
	}
	return f
}

func notFound(err error) bool {
	var fe *fetch.FetchError
	return errors.As(err, &fe) && fe.Status == http.StatusNotFound
}

// Len returns the number of distinct entities.
func (s *AggregateSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

// Contains reports whether id has been admitted.
func (s *AggregateSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

// Get returns a copy of the entity with the given id.
func (s *AggregateSet) Get(id string) (property.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return property.Entity{}, false
	}
	return s.entities[i], true
}

// Entities returns the admitted entities in admission order.
func (s *AggregateSet) Entities() []property.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]property.Entity(nil), s.entities...)
}

// IDs returns the admitted ids in admission order.
func (s *AggregateSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entities))
	for i, e := range s.entities {
		out[i] = e.ID
	}
	return out
}

// Executed reports whether the strategy with label has run.
func (s *AggregateSet) Executed(label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.outcomes[label]
	return ok
}

// Outcome returns the recorded outcome for label.
func (s *AggregateSet) Outcome(label string) (report.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes[label]
	if !ok {
		return report.Outcome{}, false
	}
	return *o, true
}

// Outcomes returns every recorded outcome in catalog order.
func (s *AggregateSet) Outcomes() []report.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]report.Outcome, 0, len(s.outcomes))
	for _, o := range s.outcomes {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Window returns when the run started and finished.
func (s *AggregateSet) Window() (time.Time, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started, s.finished
}

func (s *AggregateSet) markStarted(t time.Time) {
	s.mu.Lock()
	s.started = t
	s.mu.Unlock()
}

func (s *AggregateSet) markFinished(t time.Time) {
	s.mu.Lock()
	s.finished = t
	s.mu.Unlock()
}
