package domain

type StreamState string

const (
	// StreamOpening covers the window between construction and the first
	// response from the backing transport.
	StreamOpening StreamState = "opening"
	// StreamReading means the stream is actively consuming data.
	StreamReading StreamState = "reading"
	// StreamBuffered means the transfer completed and the full requested
	// range is held in the buffer.
	StreamBuffered StreamState = "buffered"
)

// StreamInfo is a point-in-time snapshot of a registered stream, used for
// state broadcasts and diagnostics.
type StreamInfo struct {
	Index          int         `json:"index"`
	Range          Range       `json:"range"`
	State          StreamState `json:"state"`
	BufferedLength int64       `json:"bufferedLength"`
	TotalLength    int64       `json:"totalLength"`
	ReadingAllowed bool        `json:"readingAllowed"`
}
