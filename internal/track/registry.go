package track

import (
	"context"
	"log/slog"

	"trackstream/internal/domain"
	"trackstream/internal/domain/ports"
	"trackstream/internal/metrics"
)

// AcquireStream resolves or creates a stream for the requested range. The
// zero-value range means the whole track. Lookup-or-create runs under a
// single critical section; setup and source validation happen after it so
// unrelated range requests are not serialized behind one network fetch.
//
// A request matched to an existing stream returns that stream as soon as
// setup completes. A newly created stream is additionally validated against
// the resolved source (ErrSourceUnavailable when resolution failed or the
// payload carries no locator) and triggers a rate-arbitration pass.
func (s *Session) AcquireStream(ctx context.Context, r domain.Range) (ports.StreamHandle, error) {
	stream, created := s.lookupOrCreate(r)

	if err := s.EnsureSetup(ctx); err != nil {
		return nil, err
	}

	if !created {
		return stream, nil
	}

	if _, ok := s.SourceInfo(); !ok {
		metrics.StreamAcquireFailuresTotal.Inc()
		return nil, domain.ErrSourceUnavailable
	}

	s.Reevaluate()
	return stream, nil
}

func (s *Session) lookupOrCreate(r domain.Range) (ports.StreamHandle, bool) {
	if !r.HasEnd {
		r.End = 0
	}

	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if stream, ok := s.streams[r]; ok {
		s.logger.Info("returning existing stream", slog.String("range", r.String()))
		metrics.StreamsReusedTotal.Inc()
		return stream, false
	}

	for candidate, stream := range s.streams {
		if !s.compatible(candidate, r, stream) {
			continue
		}
		s.logger.Info("returning existing stream with similar range",
			slog.String("range", candidate.String()),
			slog.String("requested", r.String()))
		metrics.StreamsReusedTotal.Inc()
		return stream, false
	}

	s.logger.Info("building stream for track", slog.String("range", r.String()))
	stream := s.deps.Streams.NewStream(len(s.streams), r)
	s.streams[r] = stream
	metrics.StreamsCreatedTotal.Inc()
	return stream, true
}

// compatible reports whether an existing stream can serve the requested
// range. A candidate must start no later than the request, carry an equally
// open or containing end, open within the probe timeout, and pass the
// gap/final-stretch heuristic.
//
// A candidate whose open-ness differs from the request is never reused, even
// when it would logically contain it. This mirrors the behavior of the
// system this one replaces; see DESIGN.md before changing it.
func (s *Session) compatible(candidate, r domain.Range, stream ports.StreamHandle) bool {
	if candidate.Start > r.Start {
		return false
	}

	if !endsEqual(candidate, r) {
		if !candidate.HasEnd || !r.HasEnd {
			return false
		}
		if candidate.End < r.End {
			return false
		}
	}

	if !stream.WaitOpen(s.cfg.OpenProbeTimeout) {
		s.logger.Info("timeout while waiting for stream to open",
			slog.String("range", candidate.String()))
		return false
	}

	bufferGap := (r.Start - candidate.Start) - stream.BufferedLength()
	tailDistance := stream.TotalLength() - r.Start
	if bufferGap > s.cfg.ReuseGapBytes && tailDistance < s.cfg.FinalStretchBytes {
		s.logger.Info("buffer too far behind near end of track, skipping candidate",
			slog.Int64("bufferGap", bufferGap),
			slog.Int64("tailDistance", tailDistance))
		return false
	}

	return true
}

func endsEqual(a, b domain.Range) bool {
	if a.HasEnd != b.HasEnd {
		return false
	}
	return !a.HasEnd || a.End == b.End
}
