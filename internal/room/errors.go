package room

import "errors"

// Lifecycle errors for the reaper task. Store operations themselves never
// surface errors: not-found reads return absent and not-found removals are
// safe no-ops.
var (
	ErrReaperRunning    = errors.New("room reaper is already running")
	ErrReaperNotRunning = errors.New("room reaper is not running")
)
