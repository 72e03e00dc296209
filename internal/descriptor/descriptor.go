// Package descriptor holds the declarative configuration a table is built
// from: an ordered list of column descriptors plus the set of actions the
// table offers. Descriptors are validated once at construction and are
// immutable afterwards.
package descriptor

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
)

// ValueType is the declared type of a column's cell values.
type ValueType string

const (
	ValueText    ValueType = "text"
	ValueBoolean ValueType = "boolean"
	ValueEnum    ValueType = "enum"
)

// ColumnKey identifies a column within a schema. Keys double as field keys
// on rows and edit buffers.
type ColumnKey string

// Column describes a single column of a table domain.
type Column struct {
	Key    ColumnKey
	Header string
	Type   ValueType

	Editable      bool
	Filterable    bool
	Sortable      bool
	RequiredOnAdd bool

	// Width is a rendering hint passed through to the render adapter.
	Width string

	// Display maps a raw cell value (stringified) to an alternate
	// renderable, e.g. a boolean status to an icon name.
	Display map[string]string

	// EnumOptions lists the valid values of an enum column. An empty list
	// on a required enum column is the "no options" sentinel: adds are
	// blocked rather than submitting a null selection.
	EnumOptions []string
}

// Coerce converts a raw value to the column's declared type.
func (c Column) Coerce(value any) (any, error) {
	switch c.Type {
	case ValueText:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Key, err)
		}

		return s, nil
	case ValueBoolean:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Key, err)
		}

		return b, nil
	case ValueEnum:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Key, err)
		}

		return s, nil
	default:
		return nil, fmt.Errorf("column %s: unknown value type %q", c.Key, c.Type)
	}
}

// ActionKind enumerates the operations a table can offer.
type ActionKind string

const (
	ActionAdd       ActionKind = "add"
	ActionEdit      ActionKind = "edit"
	ActionBatchEdit ActionKind = "batchEdit"
	ActionDelete    ActionKind = "delete"
	ActionFilter    ActionKind = "filter"
)

// FieldEdits is a partial edit payload: new values keyed by column.
type FieldEdits map[ColumnKey]any

// CommitFunc submits an action's payload to the remote side. For edits and
// batch edits, edits is keyed by row id; for adds, the single payload is
// keyed by the empty id; for deletes, edits is nil and ids names the target.
// A nil error means the remote side accepted the whole payload.
type CommitFunc func(ctx context.Context, ids []string, edits map[string]FieldEdits) error

// Action describes one operation offered by a table domain.
type Action struct {
	Kind    ActionKind
	Enabled bool
	Commit  CommitFunc

	// Icon is a rendering hint passed through to the render adapter.
	Icon string
}

// Schema is a validated descriptor set for one table domain.
type Schema struct {
	domain  string
	columns []Column
	actions map[ActionKind]Action
	byKey   map[ColumnKey]int
}

// NewSchema validates the descriptors and builds a schema. Validation
// failures are programming-contract errors and abort construction.
func NewSchema(domain string, columns []Column, actions []Action) (*Schema, error) {
	if len(columns) == 0 {
		return nil, newConfigError(domain, "schema requires at least one column")
	}

	byKey := make(map[ColumnKey]int, len(columns))

	for i, col := range columns {
		if col.Key == "" {
			return nil, newConfigError(domain, "column %d has an empty key", i)
		}

		if _, dup := byKey[col.Key]; dup {
			return nil, newConfigError(domain, "duplicate column key %q", col.Key)
		}

		switch col.Type {
		case ValueText, ValueBoolean, ValueEnum:
		default:
			return nil, newConfigError(domain, "column %q has unknown value type %q", col.Key, col.Type)
		}

		if col.RequiredOnAdd && !col.Editable {
			return nil, newConfigError(domain, "column %q is requiredOnAdd but not editable", col.Key)
		}

		if len(col.EnumOptions) > 0 && col.Type != ValueEnum {
			return nil, newConfigError(domain, "column %q declares enum options but is %q", col.Key, col.Type)
		}

		byKey[col.Key] = i
	}

	actionSet := make(map[ActionKind]Action, len(actions))

	for _, action := range actions {
		switch action.Kind {
		case ActionAdd, ActionEdit, ActionBatchEdit, ActionDelete, ActionFilter:
		default:
			return nil, newConfigError(domain, "unknown action kind %q", action.Kind)
		}

		if _, dup := actionSet[action.Kind]; dup {
			return nil, newConfigError(domain, "duplicate action %q", action.Kind)
		}

		if action.Enabled && action.Kind != ActionFilter && action.Commit == nil {
			return nil, newConfigError(domain, "enabled action %q has no commit callback", action.Kind)
		}

		actionSet[action.Kind] = action
	}

	return &Schema{
		domain:  domain,
		columns: columns,
		actions: actionSet,
		byKey:   byKey,
	}, nil
}

// Domain returns the entity domain this schema describes.
func (s *Schema) Domain() string {
	return s.domain
}

// Columns returns the ordered column descriptors.
func (s *Schema) Columns() []Column {
	return s.columns
}

// Column looks up a column by key.
func (s *Schema) Column(key ColumnKey) (Column, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return Column{}, false
	}

	return s.columns[i], true
}

// Action looks up an action by kind. Absent actions are reported as
// disabled, so callers can treat lookup and enablement uniformly.
func (s *Schema) Action(kind ActionKind) (Action, bool) {
	action, ok := s.actions[kind]
	if !ok {
		return Action{Kind: kind}, false
	}

	return action, ok
}

// RequiredOnAdd returns the columns that must be populated before an add
// commit may be submitted.
func (s *Schema) RequiredOnAdd() []Column {
	required := make([]Column, 0)

	for _, col := range s.columns {
		if col.RequiredOnAdd {
			required = append(required, col)
		}
	}

	return required
}
