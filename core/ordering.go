package core

import (
	"sort"
	"strings"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// SortBy stably sorts items by orderings, comparing the values returned by fields (field -> getter).
// Unknown fields are ignored, so user input only ever selects among known getters.
func SortBy[T any](items []T, orderings []DBOrdering, fields map[string]func(T) string) {
	keys := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		if _, ok := fields[ord.Field]; ok {
			keys = append(keys, ord)
		}
	}
	if len(keys) == 0 {
		return
	}

	sort.SliceStable(items, func(i, j int) bool {
		for _, key := range keys {
			get := fields[key.Field]
			c := strings.Compare(strings.ToLower(get(items[i])), strings.ToLower(get(items[j])))
			if c == 0 {
				continue
			}
			if key.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}
