package domain

import "time"

type PlaybackEventKind string

const (
	PlaybackStarted PlaybackEventKind = "started"
	PlaybackEnded   PlaybackEventKind = "ended"
)

// PlaybackEvent records a session boundary (start or end of playback) for a
// track, keyed by the track-log identifier the source resolver hands out.
type PlaybackEvent struct {
	TrackURI   string            `json:"trackUri"`
	TrackLogID string            `json:"trackLogId"`
	Kind       PlaybackEventKind `json:"kind"`
	PositionMS int64             `json:"positionMs"`
	OccurredAt time.Time         `json:"occurredAt"`
}
