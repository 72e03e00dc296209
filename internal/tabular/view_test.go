package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/loopdocs/docdesk/internal/descriptor"
)

func viewSchema(t *testing.T) *descriptor.Schema {
	t.Helper()

	schema, err := descriptor.NewSchema("users", []descriptor.Column{
		{Key: "email", Header: "Email", Type: descriptor.ValueText, Editable: true, Filterable: true, Sortable: true},
		{Key: "status", Header: "Status", Type: descriptor.ValueBoolean, Filterable: true, Sortable: true},
		{Key: "category", Header: "Category", Type: descriptor.ValueEnum, Filterable: true, EnumOptions: []string{"internal", "public"}},
		{Key: "note", Header: "Note", Type: descriptor.ValueText},
	}, nil)
	require.NoError(t, err)

	return schema
}

func viewRows() []Row {
	return []Row{
		{ID: "1", Fields: map[descriptor.ColumnKey]any{"email": "Zoe@example.com", "status": true, "category": "internal"}},
		{ID: "2", Fields: map[descriptor.ColumnKey]any{"email": "adam@example.com", "status": false, "category": "public"}},
		{ID: "3", Fields: map[descriptor.ColumnKey]any{"email": "ana@example.com", "status": true, "category": "internal"}},
		{ID: "4", Fields: map[descriptor.ColumnKey]any{"email": "Bob@example.com", "status": false, "category": "public"}},
	}
}

func rowIDs(rows []Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	return ids
}

func TestApplyFilters(t *testing.T) {
	schema := viewSchema(t)
	rows := viewRows()

	tests := []struct {
		name    string
		filters map[descriptor.ColumnKey]any
		wantIDs []string
	}{
		{
			name:    "no filters keeps load order",
			filters: nil,
			wantIDs: []string{"1", "2", "3", "4"},
		},
		{
			name:    "text filter is case-insensitive substring",
			filters: map[descriptor.ColumnKey]any{"email": "AN"},
			wantIDs: []string{"3"},
		},
		{
			name:    "empty text filter matches everything",
			filters: map[descriptor.ColumnKey]any{"email": ""},
			wantIDs: []string{"1", "2", "3", "4"},
		},
		{
			name:    "boolean filter is exact",
			filters: map[descriptor.ColumnKey]any{"status": true},
			wantIDs: []string{"1", "3"},
		},
		{
			name:    "enum filter is exact",
			filters: map[descriptor.ColumnKey]any{"category": "public"},
			wantIDs: []string{"2", "4"},
		},
		{
			name: "filters combine conjunctively",
			filters: map[descriptor.ColumnKey]any{
				"status":   true,
				"category": "internal",
				"email":    "zoe",
			},
			wantIDs: []string{"1"},
		},
		{
			name: "no row satisfies all predicates",
			filters: map[descriptor.ColumnKey]any{
				"status":   false,
				"category": "internal",
			},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyFilters(schema, rows, tt.filters)
			assert.Equal(t, tt.wantIDs, rowIDs(got))
		})
	}
}

func TestSortRows(t *testing.T) {
	schema := viewSchema(t)
	collator := collate.New(language.English)

	t.Run("text sort is locale-aware and case-insensitive enough", func(t *testing.T) {
		got := sortRows(schema, viewRows(), "email", collator)
		assert.Equal(t, []string{"2", "3", "4", "1"}, rowIDs(got))
	})

	t.Run("boolean sort orders false before true", func(t *testing.T) {
		got := sortRows(schema, viewRows(), "status", collator)
		assert.Equal(t, []string{"2", "4", "1", "3"}, rowIDs(got))
	})

	t.Run("no sort key preserves load order", func(t *testing.T) {
		got := sortRows(schema, viewRows(), "", collator)
		assert.Equal(t, []string{"1", "2", "3", "4"}, rowIDs(got))
	})

	t.Run("non-sortable column preserves load order", func(t *testing.T) {
		got := sortRows(schema, viewRows(), "category", collator)
		assert.Equal(t, []string{"1", "2", "3", "4"}, rowIDs(got))
	})

	t.Run("sort is stable for equal keys", func(t *testing.T) {
		once := sortRows(schema, viewRows(), "status", collator)
		twice := sortRows(schema, once, "status", collator)
		assert.Equal(t, rowIDs(once), rowIDs(twice))

		// Rows 2 and 4 share status=false and must retain relative order.
		assert.Equal(t, "2", once[0].ID)
		assert.Equal(t, "4", once[1].ID)
	})

	t.Run("sorting does not mutate the input", func(t *testing.T) {
		rows := viewRows()
		_ = sortRows(schema, rows, "email", collator)
		assert.Equal(t, []string{"1", "2", "3", "4"}, rowIDs(rows))
	})
}
