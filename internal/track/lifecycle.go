package track

import (
	"context"
	"log/slog"
	"time"

	"trackstream/internal/domain"
	"trackstream/internal/metrics"
)

const journalWriteTimeout = 5 * time.Second

// onStreamReady runs on the first successful stream-source resolution. It
// arms the fallback limit-release timer, reports the playback start to the
// catalog with a zero position marker, and records the reading start time.
func (s *Session) onStreamReady() {
	s.stateMu.Lock()
	if s.playing {
		s.stateMu.Unlock()
		return
	}
	s.playing = true
	s.readingStart = s.now()
	// Guarantees limits are never held indefinitely if buffered signals
	// never arrive.
	s.limitTimer = time.AfterFunc(s.cfg.LimitReleaseTimeout, s.ResetLimits)
	s.stateMu.Unlock()

	s.logger.Info("track started")

	s.setupMu.Lock()
	info := s.info
	meta := s.metadata
	s.setupMu.Unlock()

	if meta != nil {
		meta.NotifyStarted(info.TrackLogID, 0)
	}
	s.recordEvent(domain.PlaybackStarted, info.TrackLogID, 0)
	s.publishStarted(info.TrackLogID)
	metrics.PlaybackStartedTotal.Inc()
}

// Position estimates the player position in milliseconds: wall-clock time
// elapsed since playback started, clamped to the track duration. Zero before
// playback starts.
func (s *Session) Position() int64 {
	s.stateMu.Lock()
	start := s.readingStart
	s.stateMu.Unlock()

	if start.IsZero() {
		return 0
	}

	position := s.now().Sub(start).Milliseconds()
	if meta := s.Metadata(); meta != nil {
		if duration := meta.DurationMS(); position > duration {
			return duration
		}
	}
	return position
}

// End reports the end of playback to the catalog, carrying the current
// position. Effective only while playing and not yet ended; any other call
// is logged as an invalid transition and ignored.
func (s *Session) End() {
	s.stateMu.Lock()
	if !s.playing || s.ended {
		playing, ended := s.playing, s.ended
		s.stateMu.Unlock()
		s.logger.Warn("invalid end call",
			slog.Bool("playing", playing),
			slog.Bool("ended", ended))
		return
	}
	s.ended = true
	s.stateMu.Unlock()

	position := s.Position()
	s.logger.Debug("sending track end event", slog.Int64("positionMs", position))

	s.setupMu.Lock()
	info := s.info
	meta := s.metadata
	s.setupMu.Unlock()

	if meta != nil {
		meta.NotifyEnded(info.TrackLogID, position)
	}
	s.recordEvent(domain.PlaybackEnded, info.TrackLogID, position)
	s.publishEnded(info.TrackLogID, position)
	metrics.PlaybackEndedTotal.Inc()
}

func (s *Session) recordEvent(kind domain.PlaybackEventKind, trackLogID string, positionMS int64) {
	if s.deps.Journal == nil {
		return
	}
	event := domain.PlaybackEvent{
		TrackURI:   s.URI(),
		TrackLogID: trackLogID,
		Kind:       kind,
		PositionMS: positionMS,
		OccurredAt: s.now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
		defer cancel()
		if err := s.deps.Journal.Record(ctx, event); err != nil {
			s.logger.Warn("playback journal write failed",
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()))
		}
	}()
}
