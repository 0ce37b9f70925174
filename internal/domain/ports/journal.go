package ports

import (
	"context"

	"trackstream/internal/domain"
)

// PlaybackJournal persists playback session boundaries for later inspection.
type PlaybackJournal interface {
	Record(ctx context.Context, event domain.PlaybackEvent) error
	ListRecent(ctx context.Context, limit int) ([]domain.PlaybackEvent, error)
}
