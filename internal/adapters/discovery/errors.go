package discovery

import "errors"

// Sentinel kinds for discovery errors. Both are fatal for the run.
var (
	ErrScanRoot = errors.New("scan root unreadable")
	ErrNoForms  = errors.New("no form files found")
)
