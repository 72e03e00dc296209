package tabular

import (
	"sort"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/collate"

	"github.com/loopdocs/docdesk/internal/descriptor"
)

// applyFilters returns the rows matching every non-empty filter entry.
// Filtering never mutates row data.
func applyFilters(schema *descriptor.Schema, rows []Row, filters map[descriptor.ColumnKey]any) []Row {
	if len(filters) == 0 {
		out := make([]Row, len(rows))
		copy(out, rows)

		return out
	}

	visible := make([]Row, 0, len(rows))

	for _, row := range rows {
		if rowMatches(schema, row, filters) {
			visible = append(visible, row)
		}
	}

	return visible
}

func rowMatches(schema *descriptor.Schema, row Row, filters map[descriptor.ColumnKey]any) bool {
	for key, predicate := range filters {
		col, ok := schema.Column(key)
		if !ok {
			return false
		}

		if !valueMatches(col, row.Field(key), predicate) {
			return false
		}
	}

	return true
}

func valueMatches(col descriptor.Column, value, predicate any) bool {
	switch col.Type {
	case descriptor.ValueText:
		want := strings.ToLower(cast.ToString(predicate))
		if want == "" {
			return true
		}

		return strings.Contains(strings.ToLower(cast.ToString(value)), want)
	case descriptor.ValueBoolean:
		return cast.ToBool(value) == cast.ToBool(predicate)
	case descriptor.ValueEnum:
		return cast.ToString(value) == cast.ToString(predicate)
	default:
		return false
	}
}

// sortRows stably sorts rows by the given column. A zero sort key preserves
// load order. Text cells compare through the collator; booleans order
// false before true; enums compare by raw value.
func sortRows(schema *descriptor.Schema, rows []Row, sortKey descriptor.ColumnKey, collator *collate.Collator) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)

	if sortKey == "" {
		return out
	}

	col, ok := schema.Column(sortKey)
	if !ok || !col.Sortable {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		return compareValues(col, out[i].Field(sortKey), out[j].Field(sortKey), collator) < 0
	})

	return out
}

func compareValues(col descriptor.Column, a, b any, collator *collate.Collator) int {
	switch col.Type {
	case descriptor.ValueBoolean:
		av, bv := cast.ToBool(a), cast.ToBool(b)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case descriptor.ValueText:
		if collator != nil {
			return collator.CompareString(cast.ToString(a), cast.ToString(b))
		}

		return strings.Compare(cast.ToString(a), cast.ToString(b))
	default:
		return strings.Compare(cast.ToString(a), cast.ToString(b))
	}
}
