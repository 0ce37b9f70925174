package domain

import "errors"

var ErrNotFound = errors.New("not found")

// ErrSourceUnavailable is returned when a stream cannot be acquired because
// stream-source resolution failed, timed out, or produced no source locator.
var ErrSourceUnavailable = errors.New("stream source unavailable")
