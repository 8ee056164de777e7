package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"propsweep/internal/config"
	"propsweep/internal/logging"
	"propsweep/internal/transport"
)

// Catalog is an ordered list of strategies.
type Catalog []Strategy

// Labels returns the strategy labels in order.
func (c Catalog) Labels() []string {
	out := make([]string, len(c))
	for i, s := range c {
		out[i] = s.Label
	}
	return out
}

// Validate rejects empty or duplicate labels: yield bookkeeping is keyed by label.
func (c Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for i, s := range c {
		if s.Label == "" {
			return fmt.Errorf("strategy %d has no label", i)
		}
		if _, dup := seen[s.Label]; dup {
			return fmt.Errorf("duplicate strategy label: %s", s.Label)
		}
		seen[s.Label] = struct{}{}
	}
	return nil
}

// Options shapes the generated catalog.
type Options struct {
	BasePath    string // primary collection path
	Limits      []int
	Statuses    []string
	Endpoints   []string
	Sorts       []string
	Paginations []string
	Alternate   bool
}

// OptionsFromConfig maps the sweep section onto Options.
func OptionsFromConfig(s config.SweepConfig) Options {
	return Options{
		BasePath:    "/properties",
		Limits:      s.Limits,
		Statuses:    s.Statuses,
		Endpoints:   s.Endpoints,
		Sorts:       s.Sorts,
		Paginations: s.Paginations,
		Alternate:   s.Alternate,
	}
}

// Builder generates catalogs from Options.
type Builder struct {
	opts Options
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	if opts.BasePath == "" {
		opts.BasePath = "/properties"
	}
	return &Builder{opts: opts}
}

// Build generates the catalog. Each call returns a fresh, identical sequence.
func (b *Builder) Build() Catalog {
	var c Catalog
	c = append(c, b.baseline())
	c = append(c, b.limitSweep()...)
	c = append(c, b.statusSweep()...)
	c = append(c, b.endpointSweep()...)
	c = append(c, b.paginationSweep()...)
	c = append(c, b.sortSweep()...)
	if b.opts.Alternate {
		c = append(c, b.alternateSweep()...)
	}
	logging.Catalog("built catalog with %d strategies", len(c))
	return c
}

func (b *Builder) baseline() Strategy {
	return Strategy{
		Label:      "baseline",
		Transport:  transport.ProtocolPrimary,
		Category:   CategoryBaseline,
		Path:       b.opts.BasePath,
		Pagination: PaginationNone,
	}
}

func (b *Builder) limitSweep() []Strategy {
	out := make([]Strategy, 0, len(b.opts.Limits))
	for _, limit := range b.opts.Limits {
		out = append(out, Strategy{
			Label:      fmt.Sprintf("limit:%d sweep", limit),
			Transport:  transport.ProtocolPrimary,
			Category:   CategoryLimit,
			Path:       b.opts.BasePath,
			Params:     []transport.Param{{Name: ParamLimit, Value: strconv.Itoa(limit)}},
			Pagination: PaginationNone,
		})
	}
	return out
}

func (b *Builder) statusSweep() []Strategy {
	out := make([]Strategy, 0, len(b.opts.Statuses))
	for _, status := range b.opts.Statuses {
		out = append(out, Strategy{
			Label:      status + " filter",
			Transport:  transport.ProtocolPrimary,
			Category:   CategoryStatus,
			Path:       b.opts.BasePath,
			Params:     []transport.Param{{Name: ParamStatus, Value: status}},
			Pagination: PaginationOffset,
		})
	}
	return out
}

func (b *Builder) endpointSweep() []Strategy {
	out := make([]Strategy, 0, len(b.opts.Endpoints))
	for _, path := range b.opts.Endpoints {
		if path == b.opts.BasePath {
			// already covered by baseline and the parameter sweeps
			continue
		}
		out = append(out, Strategy{
			Label:      "endpoint " + path,
			Transport:  transport.ProtocolPrimary,
			Category:   CategoryEndpoint,
			Path:       path,
			Pagination: PaginationOffset,
		})
	}
	return out
}

func (b *Builder) paginationSweep() []Strategy {
	out := make([]Strategy, 0, len(b.opts.Paginations))
	for _, p := range b.opts.Paginations {
		out = append(out, Strategy{
			Label:      p + " pagination",
			Transport:  transport.ProtocolPrimary,
			Category:   CategoryPagination,
			Path:       b.opts.BasePath,
			Pagination: Pagination(p),
		})
	}
	return out
}

func (b *Builder) sortSweep() []Strategy {
	out := make([]Strategy, 0, len(b.opts.Sorts))
	for _, sort := range b.opts.Sorts {
		dir := "asc"
		field := sort
		if strings.HasPrefix(sort, "-") {
			dir = "desc"
			field = strings.TrimPrefix(sort, "-")
		}
		out = append(out, Strategy{
			Label:      fmt.Sprintf("sort %s %s", field, dir),
			Transport:  transport.ProtocolPrimary,
			Category:   CategorySort,
			Path:       b.opts.BasePath,
			Params:     []transport.Param{{Name: ParamSort, Value: sort}},
			Pagination: PaginationOffset,
		})
	}
	return out
}

const (
	gqlPropertiesQuery = `query Properties($limit: Int, $offset: Int) {
  properties(limit: $limit, offset: $offset) {
    id name status isActive maxGuests tags
    address { street city state zip }
  }
}`

	gqlConnectionQuery = `query PropertyConnection($limit: Int, $after: String) {
  properties: propertyConnection(first: $limit, after: $after) {
    edges { node { id name status isActive maxGuests tags address { street city state zip } } }
    pageInfo { endCursor hasNextPage }
  }
}`

	gqlArchivedQuery = `query ArchivedProperties($limit: Int, $offset: Int) {
  properties(limit: $limit, offset: $offset, includeArchived: true) {
    id name status isActive maxGuests tags
    address { street city state zip }
  }
}`
)

func (b *Builder) alternateSweep() []Strategy {
	return []Strategy{
		{
			Label:      "graphql properties",
			Transport:  transport.ProtocolAlternate,
			Category:   CategoryAlternate,
			Query:      gqlPropertiesQuery,
			Pagination: PaginationOffset,
		},
		{
			Label:      "graphql connection",
			Transport:  transport.ProtocolAlternate,
			Category:   CategoryAlternate,
			Query:      gqlConnectionQuery,
			Pagination: PaginationCursor,
		},
		{
			Label:      "graphql archived",
			Transport:  transport.ProtocolAlternate,
			Category:   CategoryAlternate,
			Query:      gqlArchivedQuery,
			Pagination: PaginationOffset,
		},
	}
}
