package track

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"trackstream/internal/domain/ports"
	"trackstream/internal/metrics"
)

// EnsureSetup blocks until the session holds track metadata and a stream
// source resolution outcome. It is safe to call from any number of
// goroutines: the fetch decisions are made under the setup lock while the
// waits happen outside it, so callers arriving mid-fetch share the same
// completion signal instead of re-triggering the fetch.
//
// The metadata wait has no deadline of its own; a stalled catalog blocks the
// caller until its context is cancelled. Source resolution is bounded by
// SourceResolveTimeout.
func (s *Session) EnsureSetup(ctx context.Context) error {
	start := s.now()

	s.setupMu.Lock()
	if s.metadata == nil && !s.metadataRequested {
		s.metadataRequested = true
		uri := s.uri
		s.setupMu.Unlock()
		s.deps.Catalog.FetchMetadata(ctx, uri, s.onMetadata)
	} else {
		s.setupMu.Unlock()
	}

	select {
	case <-s.metadataReady:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.setupMu.Lock()
	if s.infoSet {
		s.setupMu.Unlock()
		return nil
	}
	wait := s.infoWait
	if wait == nil {
		attempt := make(chan struct{})
		wait = attempt
		s.infoWait = attempt
		meta := s.metadata
		var once sync.Once
		settle := func() { once.Do(func() { close(attempt) }) }
		s.setupMu.Unlock()
		s.deps.Resolver.ResolveStreamURI(ctx, meta,
			func(info ports.SourceInfo) {
				s.onSourceInfo(info)
				settle()
			},
			func(err error) {
				s.onSourceError(err)
				settle()
			},
		)
	} else {
		s.setupMu.Unlock()
	}

	timer := time.NewTimer(s.cfg.SourceResolveTimeout)
	defer timer.Stop()
	select {
	case <-wait:
		metrics.SetupDurationSeconds.Observe(s.now().Sub(start).Seconds())
	case <-timer.C:
		s.logger.Warn("timeout waiting for stream source resolution",
			slog.Duration("timeout", s.cfg.SourceResolveTimeout))
		// Let a later call issue a fresh resolution attempt.
		s.setupMu.Lock()
		if s.infoWait == wait {
			s.infoWait = nil
		}
		s.setupMu.Unlock()
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// onMetadata is the catalog's completion callback. It fires at most once per
// session; a duplicate delivery is dropped.
func (s *Session) onMetadata(meta ports.TrackMetadata) {
	s.setupMu.Lock()
	if s.metadata != nil {
		s.setupMu.Unlock()
		return
	}
	s.metadata = meta
	s.setupMu.Unlock()

	if !meta.IsAvailable() {
		s.logger.Info("track is not available, looking for an alternative")
		if meta.FindAlternative() {
			s.logger.Info("alternative found", slog.String("alternativeUri", meta.URI()))
			// The session follows the substitute; this is the only point the
			// session URI may change.
			s.setupMu.Lock()
			s.uri = meta.URI()
			s.setupMu.Unlock()
		} else {
			s.logger.Warn("no alternatives could be found")
		}
	}

	for i, restriction := range meta.Restrictions() {
		s.logger.Info("track restriction",
			slog.Int("restriction", i+1),
			slog.Any("countriesAllowed", restriction.CountriesAllowed),
			slog.Any("countriesForbidden", restriction.CountriesForbidden),
			slog.Any("catalogues", restriction.Catalogues))
	}

	close(s.metadataReady)
	s.publishMetadata(meta)
}

func (s *Session) onSourceInfo(info ports.SourceInfo) {
	s.setupMu.Lock()
	if s.infoSet {
		s.setupMu.Unlock()
		return
	}
	s.infoSet = true
	s.infoOK = true
	s.info = info
	s.setupMu.Unlock()

	s.logger.Debug("received stream source",
		slog.String("sourceUri", info.URI),
		slog.String("trackLogId", info.TrackLogID))

	s.publishSource(info, true)
	s.onStreamReady()
}

func (s *Session) onSourceError(err error) {
	s.setupMu.Lock()
	if s.infoSet {
		s.setupMu.Unlock()
		return
	}
	s.infoSet = true
	s.infoOK = false
	s.setupMu.Unlock()

	s.logger.Warn("stream source resolution failed", slog.String("error", err.Error()))
	s.publishSource(ports.SourceInfo{}, false)
}
