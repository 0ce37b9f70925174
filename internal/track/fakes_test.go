package track

import (
	"context"
	"errors"
	"sync"
	"time"

	"trackstream/internal/domain"
	"trackstream/internal/domain/ports"
)

// fakeMetadata is a TrackMetadata with scripted availability and alternative
// resolution. Notify calls are recorded for assertions.
type fakeMetadata struct {
	mu           sync.Mutex
	uri          string
	available    bool
	altURI       string
	restrictions []domain.Restriction
	durationMS   int64

	started []notifyCall
	ended   []notifyCall
}

type notifyCall struct {
	trackLogID string
	positionMS int64
}

func (m *fakeMetadata) URI() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uri
}

func (m *fakeMetadata) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *fakeMetadata) FindAlternative() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.altURI == "" {
		return false
	}
	m.uri = m.altURI
	m.available = true
	return true
}

func (m *fakeMetadata) Restrictions() []domain.Restriction { return m.restrictions }
func (m *fakeMetadata) DurationMS() int64                  { return m.durationMS }

func (m *fakeMetadata) NotifyStarted(trackLogID string, positionMS int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, notifyCall{trackLogID, positionMS})
}

func (m *fakeMetadata) NotifyEnded(trackLogID string, positionMS int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, notifyCall{trackLogID, positionMS})
}

func (m *fakeMetadata) startedCalls() []notifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notifyCall(nil), m.started...)
}

func (m *fakeMetadata) endedCalls() []notifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notifyCall(nil), m.ended...)
}

// fakeCatalog delivers meta synchronously unless hang is set.
type fakeCatalog struct {
	mu      sync.Mutex
	meta    ports.TrackMetadata
	hang    bool
	fetches int
}

func (c *fakeCatalog) FetchMetadata(ctx context.Context, uri string, onComplete func(ports.TrackMetadata)) {
	c.mu.Lock()
	c.fetches++
	meta, hang := c.meta, c.hang
	c.mu.Unlock()
	if hang {
		return
	}
	onComplete(meta)
}

func (c *fakeCatalog) fetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// fakeResolver resolves synchronously with info or err; hangFirst swallows
// the first call without invoking either callback.
type fakeResolver struct {
	mu        sync.Mutex
	info      ports.SourceInfo
	err       error
	hangFirst bool
	calls     int
}

func (r *fakeResolver) ResolveStreamURI(ctx context.Context, meta ports.TrackMetadata, onSuccess func(ports.SourceInfo), onError func(error)) {
	r.mu.Lock()
	r.calls++
	hang := r.hangFirst && r.calls == 1
	info, err := r.info, r.err
	r.mu.Unlock()
	if hang {
		return
	}
	if err != nil {
		onError(err)
		return
	}
	onSuccess(info)
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeStream is a scriptable StreamHandle.
type fakeStream struct {
	index int
	rng   domain.Range

	mu           sync.Mutex
	state        domain.StreamState
	buffered     int64
	total        int64
	opened       bool
	reading      bool
	bufferedSubs []func()
}

func newFakeStream(index int, r domain.Range) *fakeStream {
	return &fakeStream{index: index, rng: r, state: domain.StreamOpening, reading: true}
}

func (f *fakeStream) Index() int          { return f.index }
func (f *fakeStream) Range() domain.Range { return f.rng }

func (f *fakeStream) State() domain.StreamState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeStream) BufferedLength() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buffered
}

func (f *fakeStream) TotalLength() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func (f *fakeStream) WaitOpen(time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

func (f *fakeStream) AllowReading() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading = true
}

func (f *fakeStream) PauseReading() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading = false
}

func (f *fakeStream) ReadingAllowed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reading
}

func (f *fakeStream) OnceBuffered(fn func()) {
	f.mu.Lock()
	if f.state == domain.StreamBuffered {
		f.mu.Unlock()
		fn()
		return
	}
	f.bufferedSubs = append(f.bufferedSubs, fn)
	f.mu.Unlock()
}

// open marks the transport opened with the given progress counters.
func (f *fakeStream) open(buffered, total int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = true
	f.state = domain.StreamReading
	f.buffered = buffered
	f.total = total
}

// finishBuffered completes the transfer and fires one-shot subscribers.
func (f *fakeStream) finishBuffered() {
	f.mu.Lock()
	f.state = domain.StreamBuffered
	subs := f.bufferedSubs
	f.bufferedSubs = nil
	f.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

type fakeFactory struct {
	mu      sync.Mutex
	streams []*fakeStream
}

func (f *fakeFactory) NewStream(index int, r domain.Range) ports.StreamHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := newFakeStream(index, r)
	f.streams = append(f.streams, st)
	return st
}

func (f *fakeFactory) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

type fakeJournal struct {
	mu     sync.Mutex
	events []domain.PlaybackEvent
	err    error
}

func (j *fakeJournal) Record(ctx context.Context, event domain.PlaybackEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.events = append(j.events, event)
	return nil
}

func (j *fakeJournal) ListRecent(ctx context.Context, limit int) ([]domain.PlaybackEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]domain.PlaybackEvent(nil), j.events...), nil
}

func (j *fakeJournal) recorded() []domain.PlaybackEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]domain.PlaybackEvent(nil), j.events...)
}

var errResolveFailed = errors.New("resolver unavailable")

// newTestSession wires a session with sane fakes; callers override fields on
// the returned collaborators before first use.
func newTestSession(uri string) (*Session, *fakeCatalog, *fakeResolver, *fakeFactory, *fakeMetadata) {
	meta := &fakeMetadata{uri: uri, available: true, durationMS: 240_000}
	catalog := &fakeCatalog{meta: meta}
	resolver := &fakeResolver{info: ports.SourceInfo{URI: "https://cdn.example/" + uri, TrackLogID: "lid-" + uri}}
	factory := &fakeFactory{}
	session := NewSession(uri, Deps{
		Catalog:  catalog,
		Resolver: resolver,
		Streams:  factory,
	}, Config{})
	return session, catalog, resolver, factory, meta
}
