package engine

import "fmt"

// VersionNotRetainedError reports an undo, redo, or lookup that reaches
// beyond the bounded history window. Recoverable: the caller should fall
// back to a full resync from persisted storage.
type VersionNotRetainedError struct {
	Requested int
	Oldest    int
	Newest    int
}

func (e *VersionNotRetainedError) Error() string {
	return fmt.Sprintf("version %d is not retained (window %d..%d)", e.Requested, e.Oldest, e.Newest)
}
