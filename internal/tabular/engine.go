// Package tabular implements the configuration-driven table engine behind
// the console's management screens. The engine owns the row set, in-progress
// edit buffers, selection and filter state; commits go through descriptor
// action callbacks, and every successful mutation is followed by a full
// reload of the row set from the remote side.
package tabular

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/loopdocs/docdesk/internal/descriptor"
	"github.com/loopdocs/docdesk/internal/log"
)

type Options struct {
	Schema *descriptor.Schema
	Load   Loader

	// Render may be nil; views are then discarded.
	Render RenderAdapter

	// Session may be nil; self-edit refresh is then skipped.
	Session Session

	// Locale drives text collation for sorting. Defaults to the
	// undetermined locale.
	Locale language.Tag
}

type Engine struct {
	schema   *descriptor.Schema
	load     Loader
	render   RenderAdapter
	session  Session
	collator *collate.Collator

	mu sync.Mutex

	rows  []Row
	index map[string]int

	mode      Mode
	editingID string
	inFlight  map[string]bool
	batchBusy bool

	buffers   map[string]descriptor.FieldEdits
	selection map[string]bool
	filters   map[descriptor.ColumnKey]any
	sortKey   descriptor.ColumnKey

	// reloadSeq tags reload requests; responses carrying a stale tag are
	// discarded so out-of-order refetches cannot clobber newer state.
	reloadSeq uint64
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Schema == nil {
		return nil, fmt.Errorf("tabular: schema is required")
	}

	if opts.Load == nil {
		return nil, fmt.Errorf("tabular: loader is required")
	}

	render := opts.Render
	if render == nil {
		render = NopRenderAdapter{}
	}

	return &Engine{
		schema:    opts.Schema,
		load:      opts.Load,
		render:    render,
		session:   opts.Session,
		collator:  collate.New(opts.Locale),
		index:     map[string]int{},
		inFlight:  map[string]bool{},
		buffers:   map[string]descriptor.FieldEdits{},
		selection: map[string]bool{},
		filters:   map[descriptor.ColumnKey]any{},
	}, nil
}

// Mode returns the current table-level mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.mode
}

// RowStateOf reports the lifecycle state of a row.
func (e *Engine) RowStateOf(rowID string) RowState {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.inFlight[rowID]:
		return RowCommitting
	case e.editingID == rowID && rowID != "":
		return RowEditing
	case e.mode == ModeBatchEditing && e.selection[rowID]:
		return RowEditing
	default:
		return RowViewing
	}
}

// Buffer returns a copy of the row's pending edits, if any.
func (e *Engine) Buffer(rowID string) (descriptor.FieldEdits, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf, ok := e.buffers[rowID]
	if !ok {
		return nil, false
	}

	out := make(descriptor.FieldEdits, len(buf))
	for k, v := range buf {
		out[k] = v
	}

	return out, true
}

// VisibleRows computes the filtered, sorted view over the current row set.
func (e *Engine) VisibleRows() []Row {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.visibleLocked()
}

func (e *Engine) visibleLocked() []Row {
	visible := applyFilters(e.schema, e.rows, e.filters)
	return sortRows(e.schema, visible, e.sortKey, e.collator)
}

func (e *Engine) viewLocked() View {
	return View{
		Domain:    e.schema.Domain(),
		Columns:   e.schema.Columns(),
		Rows:      lo.Map(e.visibleLocked(), func(r Row, _ int) Row { return r.clone() }),
		Mode:      e.mode,
		EditingID: e.editingID,
		Selection: lo.Keys(e.selection),
	}
}

func (e *Engine) renderNow() {
	e.mu.Lock()
	view := e.viewLocked()
	e.mu.Unlock()

	e.render.Render(view)
}

// Reload fetches the authoritative row set. Responses that resolve after a
// newer reload has been issued are discarded: the most recently issued
// reload always wins.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	e.reloadSeq++
	seq := e.reloadSeq
	e.mu.Unlock()

	rows, err := e.load(ctx)

	e.mu.Lock()

	if seq != e.reloadSeq {
		e.mu.Unlock()
		log.Debug(ctx, "discarding stale reload", log.Any("seq", seq))

		return nil
	}

	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("reload rows: %w", err)
	}

	e.rows = rows
	e.index = make(map[string]int, len(rows))

	for i, row := range rows {
		e.index[row.ID] = i
	}

	e.mu.Unlock()
	e.renderNow()

	return nil
}

// BeginEdit puts a row into editing state. Outside batch mode at most one
// row may be editing at a time.
func (e *Engine) BeginEdit(rowID string) error {
	action, _ := e.schema.Action(descriptor.ActionEdit)
	if !action.Enabled {
		return fmt.Errorf("%w: edit action is disabled", ErrInvalidState)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != ModeNormal {
		return fmt.Errorf("%w: cannot edit while %s", ErrInvalidState, e.mode)
	}

	if _, ok := e.index[rowID]; !ok {
		return fmt.Errorf("%w: unknown row %q", ErrInvalidState, rowID)
	}

	if e.editingID != "" && e.editingID != rowID {
		return fmt.Errorf("%w: row %q is already editing", ErrInvalidState, e.editingID)
	}

	if e.inFlight[rowID] {
		return fmt.Errorf("%w: row %q has a commit in flight", ErrInvalidState, rowID)
	}

	e.editingID = rowID

	if _, ok := e.buffers[rowID]; !ok {
		e.buffers[rowID] = descriptor.FieldEdits{}
	}

	return nil
}

// CancelEdit discards the row's edit buffer and returns it to viewing.
func (e *Engine) CancelEdit(rowID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.editingID != rowID {
		return fmt.Errorf("%w: row %q is not editing", ErrInvalidState, rowID)
	}

	if e.inFlight[rowID] {
		return fmt.Errorf("%w: row %q has a commit in flight", ErrInvalidState, rowID)
	}

	delete(e.buffers, rowID)
	e.editingID = ""

	return nil
}

// UpdateField writes a value into the row's edit buffer. No remote effect.
func (e *Engine) UpdateField(rowID string, key descriptor.ColumnKey, value any) error {
	col, ok := e.schema.Column(key)
	if !ok {
		return fmt.Errorf("%w: unknown column %q", ErrInvalidState, key)
	}

	if !col.Editable {
		return fmt.Errorf("%w: column %q is not editable", ErrInvalidState, key)
	}

	coerced, err := col.Coerce(value)
	if err != nil {
		return &ValidationError{Column: key, Reason: err.Error()}
	}

	if col.Type == descriptor.ValueEnum && len(col.EnumOptions) > 0 {
		if !lo.Contains(col.EnumOptions, coerced.(string)) {
			return &ValidationError{Column: key, Reason: fmt.Sprintf("%q is not a valid option", coerced)}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	editable := e.editingID == rowID || (e.mode == ModeBatchEditing && e.selection[rowID])
	if !editable {
		return fmt.Errorf("%w: row %q is not editing", ErrInvalidState, rowID)
	}

	if e.inFlight[rowID] {
		return fmt.Errorf("%w: row %q has a commit in flight", ErrInvalidState, rowID)
	}

	buf, ok := e.buffers[rowID]
	if !ok {
		buf = descriptor.FieldEdits{}
		e.buffers[rowID] = buf
	}

	buf[key] = coerced

	return nil
}

// CommitEdit submits the row's buffered edits through the edit action. On
// success the row returns to viewing and the row set is reloaded; on
// failure the buffer is retained so the user can correct and retry.
func (e *Engine) CommitEdit(ctx context.Context, rowID string) error {
	action, _ := e.schema.Action(descriptor.ActionEdit)
	if !action.Enabled {
		return fmt.Errorf("%w: edit action is disabled", ErrInvalidState)
	}

	e.mu.Lock()

	if e.editingID != rowID {
		e.mu.Unlock()
		return fmt.Errorf("%w: row %q is not editing", ErrInvalidState, rowID)
	}

	if e.inFlight[rowID] {
		e.mu.Unlock()
		return fmt.Errorf("%w: row %q has a commit in flight", ErrInvalidState, rowID)
	}

	payload := make(descriptor.FieldEdits, len(e.buffers[rowID]))
	for k, v := range e.buffers[rowID] {
		payload[k] = v
	}

	e.inFlight[rowID] = true
	e.mu.Unlock()

	err := action.Commit(ctx, []string{rowID}, map[string]descriptor.FieldEdits{rowID: payload})

	e.mu.Lock()
	delete(e.inFlight, rowID)

	if err != nil {
		e.mu.Unlock()
		return &CommitError{Action: descriptor.ActionEdit, Err: err}
	}

	delete(e.buffers, rowID)
	e.editingID = ""
	e.mu.Unlock()

	if err := e.Reload(ctx); err != nil {
		log.Warn(ctx, "reload after edit commit failed", log.Cause(err))
	}

	e.refreshSessionIfSelf(ctx, rowID)

	return nil
}

// AddRow validates the payload and submits it through the add action. A
// required enum column with zero available options blocks the add before
// any remote call is made.
func (e *Engine) AddRow(ctx context.Context, payload descriptor.FieldEdits) error {
	action, _ := e.schema.Action(descriptor.ActionAdd)
	if !action.Enabled {
		return fmt.Errorf("%w: add action is disabled", ErrInvalidState)
	}

	coerced := make(descriptor.FieldEdits, len(payload))

	for key, value := range payload {
		col, ok := e.schema.Column(key)
		if !ok {
			return fmt.Errorf("%w: unknown column %q", ErrInvalidState, key)
		}

		if !col.Editable {
			return fmt.Errorf("%w: column %q is not editable", ErrInvalidState, key)
		}

		v, err := col.Coerce(value)
		if err != nil {
			return &ValidationError{Column: key, Reason: err.Error()}
		}

		coerced[key] = v
	}

	for _, col := range e.schema.RequiredOnAdd() {
		if col.Type == descriptor.ValueEnum && len(col.EnumOptions) == 0 {
			return &ValidationError{Column: col.Key, Reason: "no options available"}
		}

		value, ok := coerced[col.Key]
		if !ok || isEmptyValue(col, value) {
			return &ValidationError{Column: col.Key, Reason: "required on add"}
		}

		if col.Type == descriptor.ValueEnum && !lo.Contains(col.EnumOptions, value.(string)) {
			return &ValidationError{Column: col.Key, Reason: fmt.Sprintf("%q is not a valid option", value)}
		}
	}

	err := action.Commit(ctx, nil, map[string]descriptor.FieldEdits{"": coerced})
	if err != nil {
		return &CommitError{Action: descriptor.ActionAdd, Err: err}
	}

	if err := e.Reload(ctx); err != nil {
		log.Warn(ctx, "reload after add commit failed", log.Cause(err))
	}

	return nil
}

// DeleteRow submits a delete through the delete action. A self-delete
// refreshes the session so revoked privileges take effect immediately.
func (e *Engine) DeleteRow(ctx context.Context, rowID string) error {
	action, _ := e.schema.Action(descriptor.ActionDelete)
	if !action.Enabled {
		return fmt.Errorf("%w: delete action is disabled", ErrInvalidState)
	}

	e.mu.Lock()

	if _, ok := e.index[rowID]; !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: unknown row %q", ErrInvalidState, rowID)
	}

	if e.editingID == rowID || e.inFlight[rowID] {
		e.mu.Unlock()
		return fmt.Errorf("%w: row %q is busy", ErrInvalidState, rowID)
	}

	e.inFlight[rowID] = true
	e.mu.Unlock()

	err := action.Commit(ctx, []string{rowID}, nil)

	e.mu.Lock()
	delete(e.inFlight, rowID)
	e.mu.Unlock()

	if err != nil {
		return &CommitError{Action: descriptor.ActionDelete, Err: err}
	}

	if err := e.Reload(ctx); err != nil {
		log.Warn(ctx, "reload after delete failed", log.Cause(err))
	}

	e.refreshSessionIfSelf(ctx, rowID)

	return nil
}

// BeginBatch switches the table into batch editing mode.
func (e *Engine) BeginBatch() error {
	action, _ := e.schema.Action(descriptor.ActionBatchEdit)
	if !action.Enabled {
		return fmt.Errorf("%w: batch edit action is disabled", ErrInvalidState)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != ModeNormal {
		return fmt.Errorf("%w: cannot start batch while %s", ErrInvalidState, e.mode)
	}

	if e.editingID != "" {
		return fmt.Errorf("%w: row %q is editing", ErrInvalidState, e.editingID)
	}

	e.mode = ModeBatchEditing

	return nil
}

// CancelBatch leaves batch mode, discarding selection and all batch buffers.
func (e *Engine) CancelBatch() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != ModeBatchEditing {
		return fmt.Errorf("%w: not in batch mode", ErrInvalidState)
	}

	if e.batchBusy {
		return fmt.Errorf("%w: batch commit in flight", ErrInvalidState)
	}

	for rowID := range e.selection {
		delete(e.buffers, rowID)
	}

	e.selection = map[string]bool{}
	e.mode = ModeNormal

	return nil
}

// ToggleSelect adds or removes a row from the batch selection.
func (e *Engine) ToggleSelect(rowID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != ModeBatchEditing {
		return fmt.Errorf("%w: not in batch mode", ErrInvalidState)
	}

	if _, ok := e.index[rowID]; !ok {
		return fmt.Errorf("%w: unknown row %q", ErrInvalidState, rowID)
	}

	if e.selection[rowID] {
		delete(e.selection, rowID)
		delete(e.buffers, rowID)
	} else {
		e.selection[rowID] = true
	}

	return nil
}

// CommitBatch submits all selected rows' buffered edits as one bulk call.
// The bulk call is all-or-nothing: on failure every buffer is retained for
// retry. If the acting user is among the edited rows, the session is
// refreshed exactly once after success.
func (e *Engine) CommitBatch(ctx context.Context) error {
	action, _ := e.schema.Action(descriptor.ActionBatchEdit)
	if !action.Enabled {
		return fmt.Errorf("%w: batch edit action is disabled", ErrInvalidState)
	}

	e.mu.Lock()

	if e.mode != ModeBatchEditing {
		e.mu.Unlock()
		return fmt.Errorf("%w: not in batch mode", ErrInvalidState)
	}

	if e.batchBusy {
		e.mu.Unlock()
		return fmt.Errorf("%w: batch commit in flight", ErrInvalidState)
	}

	edits := make(map[string]descriptor.FieldEdits)

	for rowID := range e.selection {
		buf, ok := e.buffers[rowID]
		if !ok || len(buf) == 0 {
			continue
		}

		payload := make(descriptor.FieldEdits, len(buf))
		for k, v := range buf {
			payload[k] = v
		}

		edits[rowID] = payload
	}

	if len(edits) == 0 {
		e.mu.Unlock()
		return &ValidationError{Reason: "no edits to commit"}
	}

	ids := lo.Keys(edits)

	e.batchBusy = true
	e.mu.Unlock()

	err := action.Commit(ctx, ids, edits)

	e.mu.Lock()
	e.batchBusy = false

	if err != nil {
		e.mu.Unlock()
		return &CommitError{Action: descriptor.ActionBatchEdit, Err: err}
	}

	for rowID := range edits {
		delete(e.buffers, rowID)
	}

	e.selection = map[string]bool{}
	e.mode = ModeNormal
	e.mu.Unlock()

	if err := e.Reload(ctx); err != nil {
		log.Warn(ctx, "reload after batch commit failed", log.Cause(err))
	}

	if e.session != nil && lo.Contains(ids, e.session.CurrentUserID()) {
		e.refreshSession(ctx)
	}

	return nil
}

// BeginFilter switches the table into filtering mode.
func (e *Engine) BeginFilter() error {
	if _, ok := e.schema.Action(descriptor.ActionFilter); !ok {
		return fmt.Errorf("%w: filter action is not configured", ErrInvalidState)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != ModeNormal {
		return fmt.Errorf("%w: cannot filter while %s", ErrInvalidState, e.mode)
	}

	e.mode = ModeFiltering

	return nil
}

// EndFilter leaves filtering mode and clears all predicates.
func (e *Engine) EndFilter() error {
	e.mu.Lock()

	if e.mode != ModeFiltering {
		e.mu.Unlock()
		return fmt.Errorf("%w: not in filtering mode", ErrInvalidState)
	}

	e.filters = map[descriptor.ColumnKey]any{}
	e.mode = ModeNormal
	e.mu.Unlock()

	e.renderNow()

	return nil
}

// SetFilter sets a column predicate. Pure local state; the visible view is
// recomputed immediately.
func (e *Engine) SetFilter(key descriptor.ColumnKey, value any) error {
	col, ok := e.schema.Column(key)
	if !ok {
		return fmt.Errorf("%w: unknown column %q", ErrInvalidState, key)
	}

	if !col.Filterable {
		return fmt.Errorf("%w: column %q is not filterable", ErrInvalidState, key)
	}

	e.mu.Lock()

	if e.mode != ModeFiltering {
		e.mu.Unlock()
		return fmt.Errorf("%w: not in filtering mode", ErrInvalidState)
	}

	e.filters[key] = value
	e.mu.Unlock()

	e.renderNow()

	return nil
}

// ClearFilters removes every predicate.
func (e *Engine) ClearFilters() {
	e.mu.Lock()
	e.filters = map[descriptor.ColumnKey]any{}
	e.mu.Unlock()

	e.renderNow()
}

// SetSort makes the given column the active sort key.
func (e *Engine) SetSort(key descriptor.ColumnKey) error {
	col, ok := e.schema.Column(key)
	if !ok {
		return fmt.Errorf("%w: unknown column %q", ErrInvalidState, key)
	}

	if !col.Sortable {
		return fmt.Errorf("%w: column %q is not sortable", ErrInvalidState, key)
	}

	e.mu.Lock()
	e.sortKey = key
	e.mu.Unlock()

	e.renderNow()

	return nil
}

// ClearSort restores load order.
func (e *Engine) ClearSort() {
	e.mu.Lock()
	e.sortKey = ""
	e.mu.Unlock()

	e.renderNow()
}

func (e *Engine) refreshSessionIfSelf(ctx context.Context, rowID string) {
	if e.session == nil || e.session.CurrentUserID() != rowID {
		return
	}

	e.refreshSession(ctx)
}

func (e *Engine) refreshSession(ctx context.Context) {
	if err := e.session.Refresh(ctx); err != nil {
		log.Warn(ctx, "session refresh failed", log.Cause(err))
	}
}

func isEmptyValue(col descriptor.Column, value any) bool {
	switch col.Type {
	case descriptor.ValueText, descriptor.ValueEnum:
		s, _ := value.(string)
		return strings.TrimSpace(s) == ""
	default:
		return value == nil
	}
}
