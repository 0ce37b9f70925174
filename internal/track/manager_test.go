package track

import (
	"context"
	"testing"

	"trackstream/internal/domain"
	"trackstream/internal/domain/ports"
)

func newTestManager() *Manager {
	meta := &fakeMetadata{uri: "any", available: true}
	return NewManager(Deps{
		Catalog:  &fakeCatalog{meta: meta},
		Resolver: &fakeResolver{info: ports.SourceInfo{URI: "https://cdn.example/any", TrackLogID: "lid"}},
		Streams:  &fakeFactory{},
	}, Config{})
}

func TestManagerSessionIsPerURI(t *testing.T) {
	manager := newTestManager()

	first := manager.Session("track-1")
	second := manager.Session("track-1")
	other := manager.Session("track-2")

	if first == nil || first != second {
		t.Fatal("same URI did not resolve to one session")
	}
	if first == other {
		t.Fatal("distinct URIs shared a session")
	}
}

func TestManagerLookupDoesNotCreate(t *testing.T) {
	manager := newTestManager()

	if _, ok := manager.Lookup("track-1"); ok {
		t.Fatal("Lookup created a session")
	}
	created := manager.Session("track-1")
	found, ok := manager.Lookup("track-1")
	if !ok || found != created {
		t.Fatal("Lookup did not return the created session")
	}
}

func TestManagerStatesSnapshotsEverySession(t *testing.T) {
	manager := newTestManager()

	if _, err := manager.Session("track-1").AcquireStream(context.Background(), domain.NewRange(0)); err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}
	manager.Session("track-2")

	states := manager.States()
	if len(states) != 2 {
		t.Fatalf("states = %d, want 2", len(states))
	}

	byURI := map[string]domain.SessionState{}
	for _, state := range states {
		byURI[state.URI] = state
	}
	if got := len(byURI["track-1"].Streams); got != 1 {
		t.Fatalf("track-1 streams = %d, want 1", got)
	}
	if !byURI["track-1"].Playing {
		t.Fatal("track-1 not playing after acquire")
	}
	if byURI["track-2"].Playing {
		t.Fatal("track-2 playing without a stream request")
	}
}

func TestManagerCloseStopsCreation(t *testing.T) {
	manager := newTestManager()
	manager.Session("track-1")

	manager.Close()

	if session := manager.Session("track-2"); session != nil {
		t.Fatal("Session created after Close")
	}
}
