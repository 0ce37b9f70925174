package track

import (
	"log/slog"

	"trackstream/internal/domain"
	"trackstream/internal/metrics"
)

// Reevaluate arbitrates bandwidth between the session's streams. When at
// least two streams exist and one of them is actively reading, the canonical
// whole-track stream is paused and every other stream is treated as a
// priority stream: each gets a one-shot subscription on its transition to
// buffered so limits can be lifted as soon as all priority streams are done.
//
// Reevaluate is not ordered relative to concurrent acquisitions; a stream
// created during the pass may be paused transiently. ResetLimits is
// idempotent and timer-guarded, so this resolves itself.
func (s *Session) Reevaluate() {
	streams := s.snapshotStreams()
	if len(streams) < 2 {
		return
	}

	reading := 0
	for _, stream := range streams {
		if stream.State() == domain.StreamReading {
			reading++
		}
	}
	if reading < 1 {
		return
	}

	s.logger.Debug("multiple active streams, setting up rate limits")

	for r, stream := range streams {
		if r.IsWholeTrack() {
			s.logger.Info("rate limiting enabled on stream", slog.Int("stream", stream.Index()))
			stream.PauseReading()
			metrics.RateLimitActivationsTotal.Inc()
			continue
		}

		s.logger.Info("stream priority enabled", slog.Int("stream", stream.Index()))
		stream.OnceBuffered(s.onPriorityBuffered)
	}
}

// onPriorityBuffered fires once per priority stream reaching buffered. Limits
// are released when every stream whose reading gate is open has buffered.
func (s *Session) onPriorityBuffered() {
	for _, stream := range s.snapshotStreams() {
		if stream.ReadingAllowed() && stream.State() != domain.StreamBuffered {
			return
		}
	}

	s.logger.Info("priority streams have been buffered")
	s.ResetLimits()
}

// ResetLimits cancels the pending fallback timer and reopens every stream's
// reading gate. Safe to call at any time, from the buffered path, the
// fallback timer, or an external trigger.
func (s *Session) ResetLimits() {
	s.stateMu.Lock()
	if s.limitTimer != nil {
		s.limitTimer.Stop()
		s.limitTimer = nil
	}
	s.stateMu.Unlock()

	limited := false
	for _, stream := range s.snapshotStreams() {
		limited = limited || !stream.ReadingAllowed()
		stream.AllowReading()
	}

	if limited {
		s.logger.Info("stream rate limiting disabled")
	}
}
