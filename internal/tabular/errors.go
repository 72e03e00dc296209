package tabular

import (
	"errors"
	"fmt"

	"github.com/loopdocs/docdesk/internal/descriptor"
)

// ErrInvalidState rejects an operation that is not legal in the engine's
// current state: a second concurrent edit, a disabled action, or a commit
// while another commit on the same target is in flight. The rejection is
// synchronous and leaves no state change behind.
var ErrInvalidState = errors.New("invalid table state")

// ValidationError reports a locally detected problem with an edit payload.
// The edit buffer is retained so the user can correct the input.
type ValidationError struct {
	Column descriptor.ColumnKey
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}

	return fmt.Sprintf("validation failed on column %q: %s", e.Column, e.Reason)
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CommitError reports a commit that was rejected by the remote side. The
// edit buffer is retained; there is no automatic retry.
type CommitError struct {
	Action descriptor.ActionKind
	Err    error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s failed: %v", e.Action, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// IsCommitError reports whether err is a CommitError.
func IsCommitError(err error) bool {
	var ce *CommitError
	return errors.As(err, &ce)
}
