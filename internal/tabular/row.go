package tabular

import (
	"context"

	"github.com/loopdocs/docdesk/internal/descriptor"
)

// Row is one entity instance: an opaque identifier plus typed field values
// keyed by column.
type Row struct {
	ID     string
	Fields map[descriptor.ColumnKey]any
}

// Field returns the row's value for the given column, or nil.
func (r Row) Field(key descriptor.ColumnKey) any {
	return r.Fields[key]
}

// clone returns a shallow copy with its own field map, so view projections
// never alias engine-owned rows.
func (r Row) clone() Row {
	fields := make(map[descriptor.ColumnKey]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}

	return Row{ID: r.ID, Fields: fields}
}

// Loader fetches the authoritative row set from the remote side. The engine
// calls it after every successful mutation (pessimistic refresh) and on
// demand via Reload.
type Loader func(ctx context.Context) ([]Row, error)

// Session is the capability object handed to the engine at construction.
// It exposes the acting user's identity and a way to refresh the cached
// session state after a self-edit.
type Session interface {
	// CurrentUserID returns the acting user's row identifier, stringified
	// the same way the loader stringifies row IDs.
	CurrentUserID() string

	// Refresh re-fetches the session's cached permission and identity
	// state from the server.
	Refresh(ctx context.Context) error
}

// Mode is the table-level interaction mode. Modes are mutually exclusive.
type Mode int

const (
	ModeNormal Mode = iota
	ModeFiltering
	ModeBatchEditing
)

func (m Mode) String() string {
	switch m {
	case ModeFiltering:
		return "filtering"
	case ModeBatchEditing:
		return "batchEditing"
	default:
		return "normal"
	}
}

// RowState is the per-row lifecycle state.
type RowState int

const (
	RowViewing RowState = iota
	RowEditing
	RowCommitting
)

// View is the snapshot handed to the render adapter after every state
// change that affects what should be painted.
type View struct {
	Domain    string
	Columns   []descriptor.Column
	Rows      []Row
	Mode      Mode
	EditingID string
	Selection []string
}

// RenderAdapter paints a view. The engine has no knowledge of widgets; the
// adapter maps column types and display overrides to concrete output.
type RenderAdapter interface {
	Render(view View)
}

// NopRenderAdapter discards views. Useful in tests and headless runs.
type NopRenderAdapter struct{}

func (NopRenderAdapter) Render(View) {}
