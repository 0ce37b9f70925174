package ports

import (
	"context"

	"trackstream/internal/domain"
)

// MetadataService resolves catalog metadata for a track URI. The fetch is
// asynchronous: FetchMetadata returns immediately and onComplete fires once
// from the service's own completion path.
type MetadataService interface {
	FetchMetadata(ctx context.Context, uri string, onComplete func(TrackMetadata))
}

// TrackMetadata is the catalog's view of a single track. URI may change once
// after construction, when FindAlternative swaps an unavailable track for an
// available substitute.
type TrackMetadata interface {
	URI() string
	IsAvailable() bool

	// FindAlternative tries to swap the track for an available alternative,
	// mutating URI on success. It reports whether a substitute was found.
	FindAlternative() bool

	Restrictions() []domain.Restriction
	DurationMS() int64

	// NotifyStarted and NotifyEnded report playback session boundaries back
	// to the catalog, keyed by the track-log identifier from the resolved
	// stream source.
	NotifyStarted(trackLogID string, positionMS int64)
	NotifyEnded(trackLogID string, positionMS int64)
}
