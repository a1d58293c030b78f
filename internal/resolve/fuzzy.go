// Package resolve provides fuzzy matching of user input against known names.
package resolve

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

var (
	ErrEmptyQuery = errors.New("empty search query")
	ErrEmptyNames = errors.New("no names to match against")
)

// AmbiguousError indicates multiple candidates matched equally well.
type AmbiguousError struct {
	Query      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "ambiguous match for %q", e.Query)
	if len(e.Candidates) > 0 {
		b.WriteString(", candidates: ")
		b.WriteString(strings.Join(e.Candidates, ", "))
	}
	return b.String()
}

type lowerSource []string

func (s lowerSource) String(i int) string { return strings.ToLower(s[i]) }
func (s lowerSource) Len() int            { return len(s) }

// Match returns the single name the query refers to.
//
// An exact case-insensitive match wins. Otherwise the best fuzzy match is
// returned, unless the top two results tie, which yields *AmbiguousError.
func Match(query string, names []string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if len(names) == 0 {
		return "", ErrEmptyNames
	}
	for _, name := range names {
		if strings.EqualFold(name, query) {
			return name, nil
		}
	}

	results := fuzzy.FindFrom(strings.ToLower(query), lowerSource(names))
	if len(results) == 0 {
		return "", fmt.Errorf("no match found for %q", query)
	}
	if len(results) > 1 && results[0].Score == results[1].Score {
		return "", &AmbiguousError{Query: query, Candidates: Suggest(query, names, 5)}
	}
	return names[results[0].Index], nil
}

// Suggest returns up to limit names resembling query, best first.
//
// When the whole query matches nothing (typos break subsequence matching),
// each "_"/"-"/"." separated word of the query is tried on its own and the
// names hit by the most words are returned.
func Suggest(query string, names []string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(names) == 0 || limit <= 0 {
		return nil
	}

	results := fuzzy.FindFrom(query, lowerSource(names))
	if len(results) > 0 {
		out := make([]string, 0, min(limit, len(results)))
		for _, r := range results {
			if len(out) == limit {
				break
			}
			out = append(out, names[r.Index])
		}
		return out
	}

	words := strings.FieldsFunc(query, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' ' || r == '/'
	})
	hits := make(map[int]int)
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		for _, r := range fuzzy.FindFrom(w, lowerSource(names)) {
			hits[r.Index]++
		}
	}
	if len(hits) == 0 {
		return nil
	}
	idx := make([]int, 0, len(hits))
	for i := range hits {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool {
		if hits[idx[a]] != hits[idx[b]] {
			return hits[idx[a]] > hits[idx[b]]
		}
		return names[idx[a]] < names[idx[b]]
	})
	if len(idx) > limit {
		idx = idx[:limit]
	}
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = names[n]
	}
	return out
}
