package metadata

import "errors"

// Sentinel errors every Store implementation must surface via errors.Is,
// so callers can distinguish "definitely absent" from "store unreachable"
// without depending on a concrete backend's error types.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
