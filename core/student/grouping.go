package student

import "strings"

// Group is a bucket of rows sharing one term/year key.
type Group[T any] struct {
	Key  string
	Rows []T
}

// GroupBy buckets rows by key. Every row appears exactly once, in input order within its
// bucket, and buckets are ordered by the first occurrence of their key.
func GroupBy[T any](rows []T, key func(T) string) []Group[T] {
	groups := make([]Group[T], 0)
	index := make(map[string]int)
	for _, row := range rows {
		k := key(row)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[T]{Key: k})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}
	return groups
}

// FormatTerm returns the academic term label of a numeric term. Only integral terms have a
// label; a term sent as a JSON string ("1") is labelled like the number since Text does not
// keep the JSON type.
func FormatTerm(term Text) string {
	n, ok := term.Int()
	if !ok {
		return "Not Specified"
	}
	switch n {
	case 1:
		return "Spring"
	case 2:
		return "Summer"
	case 3:
		return "Autumn"
	default:
		return "Not Specified"
	}
}

// TermKey formats a term and year as "<term label> <year>".
func TermKey(term, year Text) string {
	return FormatTerm(term) + " " + strings.TrimSpace(string(year))
}
