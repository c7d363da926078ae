// Package listing implements the table plumbing applied after visibility
// filtering: substring search, equality filters, sorting and offset/limit
// pagination. All functions are pure.
package listing

import (
	"slices"
	"sort"
	"strings"

	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Query carries listing parameters from the transport layer.
type Query struct {
	Search   string
	Filters  map[string]string
	Sort     string
	Page     int
	PageSize int
}

// Fields tells Apply how to read a record type.
type Fields[T any] struct {
	Search []func(*T) string
	Filter map[string]func(*T) string
	Sort   map[string]func(a, b *T) int
}

// Page is one slice of a listing plus the size of the whole result.
type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}

// Normalize clamps page values to their defaults and bounds.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Sort = strings.TrimSpace(q.Sort)
	return q
}

// Apply searches, filters, sorts and paginates items without modifying the
// input slice. Unknown filter or sort keys are validation errors.
func Apply[T any](items []T, q Query, f Fields[T]) (Page[T], error) {
	q = q.Normalize()

	matchers := make([]func(*T) bool, 0, len(q.Filters)+1)
	keys := make([]string, 0, len(q.Filters))
	for key := range q.Filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		want := strings.TrimSpace(q.Filters[key])
		if want == "" {
			continue
		}
		get, ok := f.Filter[key]
		if !ok {
			return Page[T]{}, apperrors.NewFieldError(key, "unsupported filter")
		}
		matchers = append(matchers, func(item *T) bool {
			return strings.EqualFold(get(item), want)
		})
	}
	if q.Search != "" && len(f.Search) > 0 {
		needle := strings.ToLower(q.Search)
		matchers = append(matchers, func(item *T) bool {
			for _, field := range f.Search {
				if strings.Contains(strings.ToLower(field(item)), needle) {
					return true
				}
			}
			return false
		})
	}

	matched := make([]T, 0, len(items))
	for i := range items {
		keep := true
		for _, m := range matchers {
			if !m(&items[i]) {
				keep = false
				break
			}
		}
		if keep {
			matched = append(matched, items[i])
		}
	}

	if q.Sort != "" {
		field, desc := strings.TrimPrefix(q.Sort, "-"), strings.HasPrefix(q.Sort, "-")
		cmp, ok := f.Sort[field]
		if !ok {
			return Page[T]{}, apperrors.NewFieldError("sort", "unsupported sort field")
		}
		slices.SortStableFunc(matched, func(a, b T) int {
			if desc {
				return cmp(&b, &a)
			}
			return cmp(&a, &b)
		})
	}

	total := len(matched)
	start := total
	if q.Page-1 <= total/q.PageSize {
		start = (q.Page - 1) * q.PageSize
	}
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return Page[T]{
		Items:    matched[start:end],
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}
