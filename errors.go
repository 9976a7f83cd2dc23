package loom

import "errors"

// Sentinel errors. Configuration errors (missing template, unbindable data
// context) are fatal to the operation that detects them and propagate to
// the caller; per-binding errors are logged and the binding skipped.
var (
	ErrNoTemplate       = errors.New("loom: repeater template missing")
	ErrNotBindable      = errors.New("loom: data context does not hold a bindable list")
	ErrUnknownPath      = errors.New("loom: binding path does not resolve")
	ErrUnknownComponent = errors.New("loom: no constructor registered for component")
	ErrBadAssignment    = errors.New("loom: value type does not match property")
)
