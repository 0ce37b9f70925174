package track

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"trackstream/internal/domain"
	"trackstream/internal/domain/ports"
)

const (
	// Reuse heuristics: a seek gap larger than the reuse threshold combined
	// with less than the final-stretch threshold of track left means a new
	// stream is cheaper than waiting on an existing one.
	defaultReuseGapBytes     = 1 << 20
	defaultFinalStretchBytes = 128 << 10

	defaultSourceResolveTimeout = 5 * time.Second
	defaultOpenProbeTimeout     = 5 * time.Second
	defaultLimitReleaseTimeout  = 10 * time.Second
)

// Config tunes the session's matcher heuristics and wait bounds. Zero fields
// fall back to the defaults above.
type Config struct {
	SourceResolveTimeout time.Duration
	OpenProbeTimeout     time.Duration
	LimitReleaseTimeout  time.Duration
	ReuseGapBytes        int64
	FinalStretchBytes    int64
}

func (c Config) withDefaults() Config {
	if c.SourceResolveTimeout <= 0 {
		c.SourceResolveTimeout = defaultSourceResolveTimeout
	}
	if c.OpenProbeTimeout <= 0 {
		c.OpenProbeTimeout = defaultOpenProbeTimeout
	}
	if c.LimitReleaseTimeout <= 0 {
		c.LimitReleaseTimeout = defaultLimitReleaseTimeout
	}
	if c.ReuseGapBytes <= 0 {
		c.ReuseGapBytes = defaultReuseGapBytes
	}
	if c.FinalStretchBytes <= 0 {
		c.FinalStretchBytes = defaultFinalStretchBytes
	}
	return c
}

// Deps are the external collaborators a session is wired with. Journal is
// optional; everything else is required.
type Deps struct {
	Catalog  ports.MetadataService
	Resolver ports.SourceResolver
	Streams  ports.StreamFactory
	Journal  ports.PlaybackJournal
	Logger   *slog.Logger
}

// Session orchestrates the byte-range streams of a single track: one-time
// setup of metadata and stream-source info, range-reuse matching across the
// stream registry, rate arbitration between concurrent streams, and playback
// start/position/end bookkeeping.
type Session struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	setupMu           sync.Mutex
	uri               string
	metadata          ports.TrackMetadata
	metadataRequested bool
	metadataReady     chan struct{}
	info              ports.SourceInfo
	infoOK            bool
	infoSet           bool
	infoWait          chan struct{} // in-flight resolution attempt; nil when none

	streamMu sync.Mutex
	streams  map[domain.Range]ports.StreamHandle

	stateMu      sync.Mutex
	playing      bool
	ended        bool
	readingStart time.Time
	limitTimer   *time.Timer

	subMu sync.Mutex
	subs  []*Subscription
}

func NewSession(uri string, deps Deps, cfg Config) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		deps:          deps,
		cfg:           cfg.withDefaults(),
		logger:        logger.With(slog.String("uri", uri)),
		now:           time.Now,
		uri:           uri,
		metadataReady: make(chan struct{}),
		streams:       make(map[domain.Range]ports.StreamHandle),
	}
}

// URI returns the track identifier, which may have been swapped for an
// available alternative during setup.
func (s *Session) URI() string {
	s.setupMu.Lock()
	defer s.setupMu.Unlock()
	return s.uri
}

// Metadata returns the fetched track metadata, or nil before setup completes.
func (s *Session) Metadata() ports.TrackMetadata {
	s.setupMu.Lock()
	defer s.setupMu.Unlock()
	return s.metadata
}

// SourceInfo returns the resolved stream source. ok is false until resolution
// succeeds with a usable source locator.
func (s *Session) SourceInfo() (ports.SourceInfo, bool) {
	s.setupMu.Lock()
	defer s.setupMu.Unlock()
	return s.info, s.infoSet && s.infoOK && s.info.URI != ""
}

// State returns a point-in-time snapshot of the session and its streams.
func (s *Session) State() domain.SessionState {
	s.stateMu.Lock()
	playing, ended := s.playing, s.ended
	s.stateMu.Unlock()

	state := domain.SessionState{
		URI:        s.URI(),
		Playing:    playing,
		Ended:      ended,
		PositionMS: s.Position(),
		UpdatedAt:  s.now(),
	}
	if meta := s.Metadata(); meta != nil {
		state.DurationMS = meta.DurationMS()
	}

	s.streamMu.Lock()
	for r, stream := range s.streams {
		state.Streams = append(state.Streams, domain.StreamInfo{
			Index:          stream.Index(),
			Range:          r,
			State:          stream.State(),
			BufferedLength: stream.BufferedLength(),
			TotalLength:    stream.TotalLength(),
			ReadingAllowed: stream.ReadingAllowed(),
		})
	}
	s.streamMu.Unlock()

	sort.Slice(state.Streams, func(i, j int) bool {
		return state.Streams[i].Index < state.Streams[j].Index
	})
	return state
}

// StreamCount returns the number of registry entries. Entries are never
// removed for the life of the session.
func (s *Session) StreamCount() int {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return len(s.streams)
}

func (s *Session) snapshotStreams() map[domain.Range]ports.StreamHandle {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	snapshot := make(map[domain.Range]ports.StreamHandle, len(s.streams))
	for r, stream := range s.streams {
		snapshot[r] = stream
	}
	return snapshot
}

// Close releases the session's timer and subscriptions. It is invoked by the
// owning manager during teardown; streams are left to their own transports.
func (s *Session) Close() {
	s.stateMu.Lock()
	if s.limitTimer != nil {
		s.limitTimer.Stop()
		s.limitTimer = nil
	}
	s.stateMu.Unlock()

	s.subMu.Lock()
	subs := s.subs
	s.subs = nil
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
}
