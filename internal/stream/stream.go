package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"trackstream/internal/domain"
)

const defaultChunkSize = 64 << 10

// Stream is a progressive byte-range transfer backed by an HTTP range GET.
// It buffers everything it reads so overlapping requests can be served from
// the same transfer, reports opening/reading/buffered transitions, and
// honours the reading-permission gate between chunk reads so the session's
// rate arbiter can pause it.
type Stream struct {
	index     int
	rng       domain.Range
	client    *http.Client
	chunkSize int
	logger    *slog.Logger

	opened  *gate // open-completion signal: set once the transport responds
	reading *gate // reading permission: cleared to pause the transfer

	mu           sync.Mutex
	cond         *sync.Cond
	state        domain.StreamState
	buf          []byte
	total        int64
	started      bool
	done         bool
	err          error
	bufferedSubs []func()
}

func New(index int, r domain.Range, client *http.Client, logger *slog.Logger) *Stream {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	st := &Stream{
		index:     index,
		rng:       r,
		client:    client,
		chunkSize: defaultChunkSize,
		logger:    logger.With(slog.Int("stream", index), slog.String("range", r.String())),
		opened:    newGate(false),
		reading:   newGate(true),
		state:     domain.StreamOpening,
	}
	st.cond = sync.NewCond(&st.mu)
	return st
}

func (st *Stream) Index() int          { return st.index }
func (st *Stream) Range() domain.Range { return st.rng }

func (st *Stream) State() domain.StreamState {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

func (st *Stream) BufferedLength() int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return int64(len(st.buf))
}

func (st *Stream) TotalLength() int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.total
}

func (st *Stream) WaitOpen(timeout time.Duration) bool {
	return st.opened.Wait(timeout)
}

func (st *Stream) AllowReading()        { st.reading.Set() }
func (st *Stream) PauseReading()        { st.reading.Clear() }
func (st *Stream) ReadingAllowed() bool { return st.reading.IsSet() }

// OnceBuffered registers fn to run exactly once when the stream transitions
// to buffered. If the transfer already completed, fn runs on the spot.
func (st *Stream) OnceBuffered(fn func()) {
	st.mu.Lock()
	if st.state == domain.StreamBuffered {
		st.mu.Unlock()
		fn()
		return
	}
	st.bufferedSubs = append(st.bufferedSubs, fn)
	st.mu.Unlock()
}

// Start launches the transfer from sourceURI. Only the first call has any
// effect; the transfer runs on its own goroutine until the range is fully
// buffered, the transport fails, or ctx is cancelled.
func (st *Stream) Start(ctx context.Context, sourceURI string) {
	st.mu.Lock()
	if st.started {
		st.mu.Unlock()
		return
	}
	st.started = true
	st.mu.Unlock()

	go st.transfer(ctx, sourceURI)
}

func (st *Stream) transfer(ctx context.Context, sourceURI string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURI, nil)
	if err != nil {
		st.fail(fmt.Errorf("build source request: %w", err))
		return
	}
	req.Header.Set("Range", st.rangeHeader())

	resp, err := st.client.Do(req)
	if err != nil {
		st.fail(fmt.Errorf("open source: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		st.fail(fmt.Errorf("source responded %s", resp.Status))
		return
	}

	total := totalFromResponse(resp, st.rng.Start)

	st.mu.Lock()
	st.total = total
	st.state = domain.StreamReading
	st.mu.Unlock()
	st.opened.Set()

	st.logger.Debug("stream opened", slog.Int64("totalLength", total))

	chunk := make([]byte, st.chunkSize)
	for {
		if err := st.waitReadingAllowed(ctx); err != nil {
			st.fail(err)
			return
		}

		n, err := resp.Body.Read(chunk)
		if n > 0 {
			st.mu.Lock()
			st.buf = append(st.buf, chunk[:n]...)
			st.cond.Broadcast()
			st.mu.Unlock()
		}
		if err != nil {
			if err == io.EOF {
				st.finish()
			} else {
				st.fail(fmt.Errorf("read source: %w", err))
			}
			return
		}
	}
}

func (st *Stream) rangeHeader() string {
	if st.rng.HasEnd {
		return fmt.Sprintf("bytes=%d-%d", st.rng.Start, st.rng.End-1)
	}
	return fmt.Sprintf("bytes=%d-", st.rng.Start)
}

func totalFromResponse(resp *http.Response, start int64) int64 {
	if header := resp.Header.Get("Content-Range"); header != "" {
		// "bytes first-last/total"
		if slash := strings.LastIndexByte(header, '/'); slash >= 0 {
			if total, err := strconv.ParseInt(header[slash+1:], 10, 64); err == nil {
				return total
			}
		}
	}
	if resp.ContentLength > 0 {
		return start + resp.ContentLength
	}
	return 0
}

func (st *Stream) waitReadingAllowed(ctx context.Context) error {
	for {
		ch := st.reading.opened()
		select {
		case <-ch:
			if st.reading.IsSet() {
				return nil
			}
			// Gate flipped between the channel handout and the re-check.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (st *Stream) finish() {
	st.mu.Lock()
	st.state = domain.StreamBuffered
	st.done = true
	if st.total == 0 {
		st.total = st.rng.Start + int64(len(st.buf))
	}
	subs := st.bufferedSubs
	st.bufferedSubs = nil
	st.cond.Broadcast()
	st.mu.Unlock()

	st.logger.Debug("stream buffered", slog.Int("subscribers", len(subs)))

	for _, fn := range subs {
		fn()
	}
}

func (st *Stream) fail(err error) {
	st.mu.Lock()
	st.done = true
	st.err = err
	st.cond.Broadcast()
	st.mu.Unlock()

	st.logger.Warn("stream transfer failed", slog.String("error", err.Error()))
}

// Err returns the transfer error, if any.
func (st *Stream) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// ReaderAt returns a blocking sequential reader over the stream's buffer,
// starting offset bytes into the stream's own range. Reads block until data
// arrives, and return io.EOF once the transfer completes and the buffer is
// drained.
func (st *Stream) ReaderAt(offset int64) io.Reader {
	if offset < 0 {
		offset = 0
	}
	return &bufferReader{st: st, off: offset}
}

type bufferReader struct {
	st  *Stream
	off int64
}

func (r *bufferReader) Read(p []byte) (int, error) {
	st := r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	for r.off >= int64(len(st.buf)) && !st.done {
		st.cond.Wait()
	}

	if r.off < int64(len(st.buf)) {
		n := copy(p, st.buf[r.off:])
		r.off += int64(n)
		return n, nil
	}

	if st.err != nil {
		return 0, st.err
	}
	return 0, io.EOF
}
