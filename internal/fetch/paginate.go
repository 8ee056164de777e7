package fetch

import (
	"context"
	"strconv"

	"propsweep/internal/catalog"
	"propsweep/internal/logging"
	"propsweep/internal/normalize"
	"propsweep/internal/property"
	"propsweep/internal/transport"
)

// walk fetches successive pages of s. It stops on an empty page, a page that
// contributes no id not already seen in this walk (servers that ignore the
// offset keep returning page one), a missing or repeated cursor, or MaxPages.
// A short page is not treated as the end: some servers silently cap the page
// size below the requested limit.
func (f *Fetcher) walk(ctx context.Context, s catalog.Strategy) ([]map[string]any, error) {
	size := f.pageSize(s)
	var out []map[string]any
	seen := make(map[string]struct{})
	cursors := make(map[string]struct{})
	cursor := ""

	for page := 0; page < f.opts.MaxPages; page++ {
		cur := f.pageStrategy(s, size, page, cursor)

		resp, err := f.Do(ctx, cur)
		if err != nil {
			if len(out) > 0 {
				logging.FetchWarn("%s failed on page %d after %d entities: %v", s.Label, page+1, len(out), err)
			}
			return out, err
		}

		items := f.normalizer.Normalize(resp.Body)
		fresh := 0
		for _, item := range items {
			id := property.RawID(item)
			if id != "" {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				fresh++
			}
			out = append(out, item)
		}
		logging.FetchDebug("%s page %d: %d items, %d new", s.Label, page+1, len(items), fresh)

		if len(items) == 0 || fresh == 0 {
			return out, nil
		}

		if s.Pagination == catalog.PaginationCursor {
			next := normalize.NextCursor(resp.Body)
			if next == "" {
				return out, nil
			}
			if _, repeated := cursors[next]; repeated {
				logging.FetchWarn("%s returned repeated cursor %q, stopping", s.Label, next)
				return out, nil
			}
			cursors[next] = struct{}{}
			cursor = next
		}
	}

	logging.FetchWarn("%s reached max pages (%d); results may be truncated", s.Label, f.opts.MaxPages)
	return out, nil
}

func (f *Fetcher) pageSize(s catalog.Strategy) int {
	if v, ok := s.Param(catalog.ParamLimit); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if v, ok := s.Variables[catalog.ParamLimit].(int); ok && v > 0 {
		return v
	}
	return f.opts.PageSize
}

// pageStrategy derives the strategy for page (zero-based) from s.
func (f *Fetcher) pageStrategy(s catalog.Strategy, size, page int, cursor string) catalog.Strategy {
	if s.Transport == transport.ProtocolAlternate {
		cur := s.WithVariable(catalog.ParamLimit, size)
		switch s.Pagination {
		case catalog.PaginationOffset:
			cur = cur.WithVariable(catalog.ParamOffset, page*size)
		case catalog.PaginationPage:
			cur = cur.WithVariable(catalog.ParamPage, page+1)
		case catalog.PaginationCursor:
			if cursor != "" {
				cur = cur.WithVariable("after", cursor)
			}
		}
		return cur
	}

	cur := s.WithParam(catalog.ParamLimit, strconv.Itoa(size))
	switch s.Pagination {
	case catalog.PaginationOffset:
		cur = cur.WithParam(catalog.ParamOffset, strconv.Itoa(page*size))
	case catalog.PaginationPage:
		cur = cur.WithParam(catalog.ParamPage, strconv.Itoa(page+1))
	case catalog.PaginationCursor:
		if cursor != "" {
			cur = cur.WithParam(catalog.ParamCursor, cursor)
		}
	}
	return cur
}
