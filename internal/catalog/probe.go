package catalog

import (
	"sort"
	"strconv"

	"propsweep/internal/property"
	"propsweep/internal/transport"
)

// IDProbe emits single-entity lookups for ids adjacent to the numeric ids
// already discovered (id±1 .. id±span). Known ids and non-positive candidates
// are skipped, as are entities whose id is not an integer. Probes are ordered
// by candidate id.
func IDProbe(entities []property.Entity, span int) Catalog {
	if span < 1 {
		return nil
	}

	known := make(map[int64]struct{}, len(entities))
	for _, e := range entities {
		if n, err := strconv.ParseInt(e.ID, 10, 64); err == nil {
			known[n] = struct{}{}
		}
	}

	candidates := make(map[int64]struct{})
	for n := range known {
		for d := int64(1); d <= int64(span); d++ {
			for _, c := range []int64{n - d, n + d} {
				if c < 1 {
					continue
				}
				if _, ok := known[c]; ok {
					continue
				}
				candidates[c] = struct{}{}
			}
		}
	}

	ids := make([]int64, 0, len(candidates))
	for c := range candidates {
		ids = append(ids, c)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make(Catalog, 0, len(ids))
	for _, id := range ids {
		s := strconv.FormatInt(id, 10)
		out = append(out, Strategy{
			Label:      "probe id " + s,
			Transport:  transport.ProtocolPrimary,
			Category:   CategoryProbe,
			Path:       "/properties/" + s,
			Pagination: PaginationNone,
		})
	}
	return out
}
