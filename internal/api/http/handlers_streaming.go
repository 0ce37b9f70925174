package apihttp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"trackstream/internal/domain/ports"
	"trackstream/internal/metrics"
)

// openWaitTimeout bounds how long the handler waits for the transfer to
// report its total length before falling back to a 200 without Content-Range.
const openWaitTimeout = 5 * time.Second

// transferStream is the concrete surface the streaming handler needs beyond
// the session-facing stream contract: launching the transfer and reading the
// buffered bytes back out.
type transferStream interface {
	ports.StreamHandle
	Start(ctx context.Context, sourceURI string)
	ReaderAt(offset int64) io.Reader
}

// handleStream serves GET /tracks/{uri}/stream. The Range header selects the
// byte range; its absence means the whole track. The response body is fed
// from the session's shared stream buffer, so overlapping client ranges ride
// a single upstream transfer.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, uri string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	requested, err := parseByteRange(r.Header.Get("Range"))
	if err != nil {
		writeError(w, http.StatusRequestedRangeNotSatisfiable, "bad_range", err.Error())
		return
	}

	session := s.manager.Session(uri)
	if session == nil {
		writeError(w, http.StatusServiceUnavailable, "shutting_down", "server is shutting down")
		return
	}
	s.watchSession(uri, session)

	handle, err := session.AcquireStream(r.Context(), requested)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	stream, ok := handle.(transferStream)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "stream does not support transfer")
		return
	}

	info, ok := session.SourceInfo()
	if !ok {
		writeError(w, http.StatusBadGateway, "source_unavailable", "no stream source resolved")
		return
	}

	// The transfer outlives this request: later requests for overlapping
	// ranges read from the same buffer.
	stream.Start(s.baseCtx, info.URI)

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", "application/octet-stream")

	granted := stream.Range()
	offset := requested.Start - granted.Start

	if stream.WaitOpen(openWaitTimeout) && stream.TotalLength() > 0 {
		total := stream.TotalLength()
		end := total - 1
		if requested.HasEnd && requested.End <= total {
			end = requested.End - 1
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", requested.Start, end, total))
		w.Header().Set("Content-Length", fmt.Sprintf("%d", end-requested.Start+1))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	var body io.Reader = stream.ReaderAt(offset)
	if requested.HasEnd {
		body = io.LimitReader(body, requested.End-requested.Start)
	}

	written, err := io.Copy(w, body)
	metrics.StreamBytesServedTotal.Add(float64(written))
	if err != nil {
		s.logger.Debug("stream copy interrupted",
			slog.String("uri", uri),
			slog.Int64("written", written),
			slog.String("error", err.Error()))
	}
}
