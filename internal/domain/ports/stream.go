package ports

import (
	"time"

	"trackstream/internal/domain"
)

// StreamHandle is the capability set the session orchestrator requires of a
// live byte-range transfer. The byte-level transport behind it is external to
// the orchestrator: the handle only exposes state, progress counters, the
// open-completion signal, the reading-permission gate, and one-shot
// state-transition subscriptions.
type StreamHandle interface {
	Index() int
	Range() domain.Range

	State() domain.StreamState
	BufferedLength() int64
	TotalLength() int64

	// WaitOpen blocks until the stream's transport has opened (first
	// response received, total length known) or the timeout elapses, and
	// reports whether the stream opened in time.
	WaitOpen(timeout time.Duration) bool

	// The reading gate controls whether the stream may keep consuming data.
	// All three operations are idempotent and safe for concurrent use.
	AllowReading()
	PauseReading()
	ReadingAllowed() bool

	// OnceBuffered registers fn to run exactly once when the stream
	// transitions to the buffered state. If the stream is already buffered,
	// fn runs immediately.
	OnceBuffered(fn func())
}

// StreamFactory constructs stream handles for a session's registry. Index is
// the registry size at creation time.
type StreamFactory interface {
	NewStream(index int, r domain.Range) StreamHandle
}
