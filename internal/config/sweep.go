package config

import "fmt"

// SweepConfig configures the strategy catalog and the aggregator.
type SweepConfig struct {
	Limits      []int    `yaml:"limits"`
	Statuses    []string `yaml:"statuses"`
	Endpoints   []string `yaml:"endpoints"`
	Sorts       []string `yaml:"sorts"`
	Paginations []string `yaml:"paginations"` // offset, cursor, page
	WrapperKeys []string `yaml:"wrapper_keys"`

	// Alternate (GraphQL) protocol descriptors
	Alternate bool `yaml:"alternate"`

	Workers     int    `yaml:"workers"`      // 1 = strictly sequential
	MaxPages    int    `yaml:"max_pages"`    // per paginated strategy
	PageSize    int    `yaml:"page_size"`    // for paginated strategies
	MergePolicy string `yaml:"merge_policy"` // first-seen, fill-missing

	// Feedback-driven search descriptors built from discovered entities
	SearchExpansion bool `yaml:"search_expansion"`
	SearchLimit     int  `yaml:"search_limit"`

	// Experimental arithmetic id probing
	IDProbe     bool `yaml:"id_probe"`
	IDProbeSpan int  `yaml:"id_probe_span"`

	// Stop once report.expected entities are admitted
	StopAtTarget bool `yaml:"stop_at_target"`
}

// ValidMergePolicies lists the supported merge policies.
var ValidMergePolicies = []string{"first-seen", "fill-missing"}

// ValidPaginations lists the supported pagination styles.
var ValidPaginations = []string{"offset", "cursor", "page"}

// DefaultSweepConfig returns the default catalog shape.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Limits:      []int{10, 20, 25, 50, 100, 200, 500, 1000},
		Statuses:    []string{"active", "inactive", "archived", "all", "listed", "unlisted", "draft"},
		Endpoints:   []string{"/properties", "/listings", "/v2/properties", "/properties/search", "/units"},
		Sorts:       []string{"created_at", "-created_at", "updated_at", "-updated_at", "name", "-name"},
		Paginations: []string{"offset", "cursor", "page"},
		WrapperKeys: []string{"data", "properties", "results", "items"},
		Alternate:   true,
		Workers:     1,
		MaxPages:    50,
		PageSize:    100,
		MergePolicy: "first-seen",
		SearchLimit: 40,
		IDProbeSpan: 3,
	}
}

// Validate checks the sweep settings.
func (s SweepConfig) Validate() error {
	if s.Workers < 1 {
		return fmt.Errorf("sweep.workers must be >= 1")
	}
	if s.MaxPages < 1 {
		return fmt.Errorf("sweep.max_pages must be >= 1")
	}
	if s.PageSize < 1 {
		return fmt.Errorf("sweep.page_size must be >= 1")
	}
	for _, l := range s.Limits {
		if l < 1 {
			return fmt.Errorf("sweep.limits entries must be >= 1 (got %d)", l)
		}
	}
	if s.MergePolicy != "" && !contains(ValidMergePolicies, s.MergePolicy) {
		return fmt.Errorf("invalid sweep.merge_policy: %s (valid: %v)", s.MergePolicy, ValidMergePolicies)
	}
	for _, p := range s.Paginations {
		if !contains(ValidPaginations, p) {
			return fmt.Errorf("invalid sweep.paginations entry: %s (valid: %v)", p, ValidPaginations)
		}
	}
	if len(s.WrapperKeys) == 0 {
		return fmt.Errorf("sweep.wrapper_keys must not be empty")
	}
	if s.IDProbe && s.IDProbeSpan < 1 {
		return fmt.Errorf("sweep.id_probe_span must be >= 1 when id_probe is enabled")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
