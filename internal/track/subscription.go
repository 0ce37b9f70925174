package track

import "trackstream/internal/domain/ports"

const eventBufferSize = 16

type MetadataEvent struct {
	URI        string `json:"uri"`
	Available  bool   `json:"available"`
	DurationMS int64  `json:"durationMs"`
}

type SourceEvent struct {
	URI       string `json:"uri"`
	SourceURI string `json:"sourceUri,omitempty"`
	OK        bool   `json:"ok"`
}

type StartedEvent struct {
	URI        string `json:"uri"`
	TrackLogID string `json:"trackLogId"`
}

type EndedEvent struct {
	URI        string `json:"uri"`
	TrackLogID string `json:"trackLogId"`
	PositionMS int64  `json:"positionMs"`
}

// Subscription delivers session events over typed channels. Sends are
// non-blocking: a subscriber that falls behind loses events rather than
// stalling the session.
type Subscription struct {
	Metadata <-chan MetadataEvent
	Source   <-chan SourceEvent
	Started  <-chan StartedEvent
	Ended    <-chan EndedEvent
	Done     <-chan struct{}

	metadataCh chan MetadataEvent
	sourceCh   chan SourceEvent
	startedCh  chan StartedEvent
	endedCh    chan EndedEvent
	doneCh     chan struct{}
}

func newSubscription() *Subscription {
	sub := &Subscription{
		metadataCh: make(chan MetadataEvent, eventBufferSize),
		sourceCh:   make(chan SourceEvent, eventBufferSize),
		startedCh:  make(chan StartedEvent, eventBufferSize),
		endedCh:    make(chan EndedEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	sub.Metadata = sub.metadataCh
	sub.Source = sub.sourceCh
	sub.Started = sub.startedCh
	sub.Ended = sub.endedCh
	sub.Done = sub.doneCh
	return sub
}

func (sub *Subscription) close() {
	close(sub.doneCh)
}

// Subscribe registers a new event subscription on the session.
func (s *Session) Subscribe() *Subscription {
	sub := newSubscription()
	s.subMu.Lock()
	s.subs = append(s.subs, sub)
	s.subMu.Unlock()
	return sub
}

// Unsubscribe detaches sub and closes its Done channel.
func (s *Session) Unsubscribe(sub *Subscription) {
	s.subMu.Lock()
	for i, candidate := range s.subs {
		if candidate == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	s.subMu.Unlock()
	sub.close()
}

func (s *Session) forEachSub(fn func(*Subscription)) {
	s.subMu.Lock()
	subs := make([]*Subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()
	for _, sub := range subs {
		fn(sub)
	}
}

func (s *Session) publishMetadata(meta ports.TrackMetadata) {
	event := MetadataEvent{URI: meta.URI(), Available: meta.IsAvailable(), DurationMS: meta.DurationMS()}
	s.forEachSub(func(sub *Subscription) {
		select {
		case sub.metadataCh <- event:
		default:
		}
	})
}

func (s *Session) publishSource(info ports.SourceInfo, ok bool) {
	event := SourceEvent{URI: s.URI(), SourceURI: info.URI, OK: ok}
	s.forEachSub(func(sub *Subscription) {
		select {
		case sub.sourceCh <- event:
		default:
		}
	})
}

func (s *Session) publishStarted(trackLogID string) {
	event := StartedEvent{URI: s.URI(), TrackLogID: trackLogID}
	s.forEachSub(func(sub *Subscription) {
		select {
		case sub.startedCh <- event:
		default:
		}
	})
}

func (s *Session) publishEnded(trackLogID string, positionMS int64) {
	event := EndedEvent{URI: s.URI(), TrackLogID: trackLogID, PositionMS: positionMS}
	s.forEachSub(func(sub *Subscription) {
		select {
		case sub.endedCh <- event:
		default:
		}
	})
}
