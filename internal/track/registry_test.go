package track

import (
	"context"
	"errors"
	"sync"
	"testing"

	"trackstream/internal/domain"
)

func TestAcquireStreamCreatesAndReusesExactRange(t *testing.T) {
	session, _, _, factory, _ := newTestSession("track-1")

	first, err := session.AcquireStream(context.Background(), domain.NewRange(0))
	if err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}
	second, err := session.AcquireStream(context.Background(), domain.NewRange(0))
	if err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}

	if first != second {
		t.Fatal("identical ranges produced distinct streams")
	}
	if got := factory.created(); got != 1 {
		t.Fatalf("streams created = %d, want 1", got)
	}
}

func TestAcquireStreamZeroValueRangeMeansWholeTrack(t *testing.T) {
	session, _, _, factory, _ := newTestSession("track-1")

	first, err := session.AcquireStream(context.Background(), domain.Range{})
	if err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}
	second, err := session.AcquireStream(context.Background(), domain.NewRange(0))
	if err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}

	if first != second {
		t.Fatal("zero-value range and NewRange(0) resolved to distinct streams")
	}
	if got := factory.created(); got != 1 {
		t.Fatalf("streams created = %d, want 1", got)
	}
}

func TestAcquireStreamConcurrentSameRangeCreatesOne(t *testing.T) {
	session, _, _, factory, _ := newTestSession("track-1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := session.AcquireStream(context.Background(), domain.NewRange(1024)); err != nil {
				t.Errorf("AcquireStream: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := factory.created(); got != 1 {
		t.Fatalf("streams created = %d, want 1", got)
	}
	if got := session.StreamCount(); got != 1 {
		t.Fatalf("registry entries = %d, want 1", got)
	}
}

func TestAcquireStreamSourceFailureOnCreatePath(t *testing.T) {
	session, _, resolver, factory, _ := newTestSession("track-1")
	resolver.err = errResolveFailed

	if _, err := session.AcquireStream(context.Background(), domain.NewRange(0)); !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("AcquireStream = %v, want ErrSourceUnavailable", err)
	}

	// The registry entry survives the failure; a repeat request matches it
	// and returns without re-validating the source.
	stream, err := session.AcquireStream(context.Background(), domain.NewRange(0))
	if err != nil {
		t.Fatalf("AcquireStream on reuse path: %v", err)
	}
	if stream == nil {
		t.Fatal("reuse path returned nil stream")
	}
	if got := factory.created(); got != 1 {
		t.Fatalf("streams created = %d, want 1", got)
	}
}

func TestCompatibleRejectsCandidateStartingLater(t *testing.T) {
	session, _, _, factory, _ := newTestSession("track-1")

	first, err := session.AcquireStream(context.Background(), domain.NewRange(4096))
	if err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}
	first.(*fakeStream).open(0, 10<<20)

	second, err := session.AcquireStream(context.Background(), domain.NewRange(0))
	if err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}
	if first == second {
		t.Fatal("candidate starting after the request was reused")
	}
	if got := factory.created(); got != 2 {
		t.Fatalf("streams created = %d, want 2", got)
	}
}

func TestCompatibleRejectsOpennessMismatch(t *testing.T) {
	session, _, _, factory, _ := newTestSession("track-1")

	// An unbounded stream logically contains any bounded range, but a
	// bounded request never reuses it.
	first, err := session.AcquireStream(context.Background(), domain.NewRange(0))
	if err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}
	first.(*fakeStream).open(1<<20, 10<<20)

	second, err := session.AcquireStream(context.Background(), domain.NewBoundedRange(0, 4096))
	if err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}
	if first == second {
		t.Fatal("bounded request reused an unbounded stream")
	}
	if got := factory.created(); got != 2 {
		t.Fatalf("streams created = %d, want 2", got)
	}
}

func TestCompatibleReusesContainingBoundedRange(t *testing.T) {
	session, _, _, factory, _ := newTestSession("track-1")

	first, err := session.AcquireStream(context.Background(), domain.NewBoundedRange(0, 1<<20))
	if err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}
	first.(*fakeStream).open(512<<10, 10<<20)

	second, err := session.AcquireStream(context.Background(), domain.NewBoundedRange(4096, 64<<10))
	if err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}
	if first != second {
		t.Fatal("contained bounded range was not reused")
	}
	if got := factory.created(); got != 1 {
		t.Fatalf("streams created = %d, want 1", got)
	}
}

func TestCompatibleSkipsCandidateThatNeverOpens(t *testing.T) {
	session, _, _, factory, _ := newTestSession("track-1")
	session.cfg.OpenProbeTimeout = 1 // fakes ignore the timeout; keep the test fast

	if _, err := session.AcquireStream(context.Background(), domain.NewRange(0)); err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}
	// The first stream never opened; a later unbounded request from deeper in
	// the track must not wait on it forever.
	second, err := session.AcquireStream(context.Background(), domain.NewRange(2_000_000))
	if err != nil {
		t.Fatalf("AcquireStream: %v", err)
	}
	if second == nil {
		t.Fatal("nil stream")
	}
	if got := factory.created(); got != 2 {
		t.Fatalf("streams created = %d, want 2", got)
	}
}

func TestCompatibleGapAndFinalStretchHeuristic(t *testing.T) {
	tests := []struct {
		name       string
		buffered   int64
		total      int64
		reqStart   int64
		wantReused bool
	}{
		{
			// Far behind and almost at the end: a fresh stream wins.
			name:       "large gap near tail",
			buffered:   0,
			total:      2_000_000 + 64<<10,
			reqStart:   2_000_000,
			wantReused: false,
		},
		{
			// Far behind but plenty of track left: keep the transfer.
			name:       "large gap far from tail",
			buffered:   0,
			total:      64 << 20,
			reqStart:   2_000_000,
			wantReused: true,
		},
		{
			// Caught up near the end: reuse.
			name:       "small gap near tail",
			buffered:   2_000_000,
			total:      2_000_000 + 64<<10,
			reqStart:   2_000_000,
			wantReused: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, _, _, factory, _ := newTestSession("track-1")

			first, err := session.AcquireStream(context.Background(), domain.NewRange(0))
			if err != nil {
				t.Fatalf("AcquireStream: %v", err)
			}
			first.(*fakeStream).open(tt.buffered, tt.total)

			second, err := session.AcquireStream(context.Background(), domain.NewRange(tt.reqStart))
			if err != nil {
				t.Fatalf("AcquireStream: %v", err)
			}

			reused := first == second
			if reused != tt.wantReused {
				t.Fatalf("reused = %v, want %v", reused, tt.wantReused)
			}
			wantCreated := 1
			if !tt.wantReused {
				wantCreated = 2
			}
			if got := factory.created(); got != wantCreated {
				t.Fatalf("streams created = %d, want %d", got, wantCreated)
			}
		})
	}
}
