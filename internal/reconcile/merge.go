// Package reconcile merges partial permission edits into full permission
// sets. A management view only ever sees a subset of the permission
// namespace (its visible domain); committing an edit from that view must
// preserve every code outside the domain untouched.
package reconcile

import (
	"sort"

	"github.com/samber/lo"
)

// Merge computes a user's next full permission set from a partial edit over
// a visible domain.
//
// Codes outside the domain pass through from the current set untouched.
// Codes inside the domain take the edited value when the edit names them,
// and otherwise keep their current membership. The result is sorted and
// deduplicated, so applying the same edit twice yields the same set.
func Merge(current, domain []string, edit map[string]bool) []string {
	inDomain := make(map[string]bool, len(domain))
	for _, code := range domain {
		inDomain[code] = true
	}

	has := make(map[string]bool, len(current))
	for _, code := range current {
		has[code] = true
	}

	result := make([]string, 0, len(current)+len(domain))

	for _, code := range current {
		if !inDomain[code] {
			result = append(result, code)
		}
	}

	for _, code := range domain {
		granted, edited := edit[code]
		if !edited {
			granted = has[code]
		}

		if granted {
			result = append(result, code)
		}
	}

	result = lo.Uniq(result)
	sort.Strings(result)

	return result
}
