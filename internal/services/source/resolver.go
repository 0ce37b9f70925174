package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"trackstream/internal/domain/ports"
)

const resolveTimeout = 10 * time.Second

// Resolver exchanges track metadata for a stream-source locator over HTTP.
type Resolver struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

func NewResolver(endpoint string, httpClient *http.Client, logger *slog.Logger) *Resolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{endpoint: endpoint, http: httpClient, logger: logger}
}

type resolveRequest struct {
	URI string `json:"uri"`
}

type resolveResponse struct {
	URI string `json:"uri"`
	LID string `json:"lid"`
}

// ResolveStreamURI resolves the stream source for the given metadata
// asynchronously. Exactly one of onSuccess or onError fires. A payload
// missing the source locator or track-log id counts as a failure.
func (r *Resolver) ResolveStreamURI(ctx context.Context, meta ports.TrackMetadata, onSuccess func(ports.SourceInfo), onError func(error)) {
	go func() {
		info, err := r.resolve(ctx, meta.URI())
		if err != nil {
			onError(err)
			return
		}
		onSuccess(info)
	}()
}

func (r *Resolver) resolve(ctx context.Context, uri string) (ports.SourceInfo, error) {
	reqCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	body, err := json.Marshal(resolveRequest{URI: uri})
	if err != nil {
		return ports.SourceInfo{}, err
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return ports.SourceInfo{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return ports.SourceInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.SourceInfo{}, fmt.Errorf("resolver responded %s", resp.Status)
	}

	var payload resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ports.SourceInfo{}, fmt.Errorf("decode resolver response: %w", err)
	}
	if payload.URI == "" {
		return ports.SourceInfo{}, errors.New("resolver response missing source uri")
	}
	if payload.LID == "" {
		return ports.SourceInfo{}, errors.New("resolver response missing track log id")
	}

	return ports.SourceInfo{URI: payload.URI, TrackLogID: payload.LID}, nil
}

var _ ports.SourceResolver = (*Resolver)(nil)
