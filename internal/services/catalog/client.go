package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"trackstream/internal/domain"
	"trackstream/internal/domain/ports"
)

const (
	lookupTimeout = 10 * time.Second
	notifyTimeout = 5 * time.Second
)

// Client talks to the track catalog over HTTP: track lookup, alternative
// resolution for unavailable tracks, and playback start/end notifications.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

type restrictionDoc struct {
	CountriesAllowed   []string `json:"countriesAllowed"`
	CountriesForbidden []string `json:"countriesForbidden"`
	Catalogues         []string `json:"catalogues"`
}

type trackDoc struct {
	URI          string           `json:"uri"`
	Available    bool             `json:"available"`
	DurationMS   int64            `json:"durationMs"`
	Restrictions []restrictionDoc `json:"restrictions"`
}

// FetchMetadata resolves metadata for uri asynchronously. A catalog failure
// still completes the fetch: the callback receives metadata marked
// unavailable so the session can proceed (or look for an alternative) rather
// than block forever on a broken catalog.
func (c *Client) FetchMetadata(ctx context.Context, uri string, onComplete func(ports.TrackMetadata)) {
	go func() {
		doc, err := c.fetchTrack(ctx, uri)
		if err != nil {
			c.logger.Warn("metadata fetch failed",
				slog.String("uri", uri),
				slog.String("error", err.Error()))
			doc = trackDoc{URI: uri}
		}
		onComplete(&Metadata{client: c, doc: doc})
	}()
}

func (c *Client) fetchTrack(ctx context.Context, uri string) (trackDoc, error) {
	reqCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	endpoint := c.baseURL + "/v1/tracks/" + url.PathEscape(uri)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return trackDoc{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return trackDoc{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return trackDoc{}, fmt.Errorf("catalog responded %s", resp.Status)
	}

	var doc trackDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return trackDoc{}, fmt.Errorf("decode track: %w", err)
	}
	if doc.URI == "" {
		doc.URI = uri
	}
	return doc, nil
}

func (c *Client) fetchAlternatives(ctx context.Context, uri string) ([]trackDoc, error) {
	reqCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	endpoint := c.baseURL + "/v1/tracks/" + url.PathEscape(uri) + "/alternatives"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog responded %s", resp.Status)
	}

	var docs []trackDoc
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode alternatives: %w", err)
	}
	return docs, nil
}

type playbackEventDoc struct {
	TrackURI   string `json:"trackUri"`
	TrackLogID string `json:"trackLogId"`
	Kind       string `json:"kind"`
	PositionMS int64  `json:"positionMs"`
}

func (c *Client) postEvent(event playbackEventDoc) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	body, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("encode playback event failed", slog.String("error", err.Error()))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/events", strings.NewReader(string(body)))
	if err != nil {
		c.logger.Error("build playback event request failed", slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("playback event delivery failed",
			slog.String("kind", event.Kind),
			slog.String("error", err.Error()))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.logger.Warn("playback event rejected",
			slog.String("kind", event.Kind),
			slog.String("status", resp.Status))
	}
}

// Metadata is the catalog-backed implementation of the track metadata
// contract. The wrapped document may be swapped once by FindAlternative.
type Metadata struct {
	client *Client

	mu  sync.Mutex
	doc trackDoc
}

func (m *Metadata) URI() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.URI
}

func (m *Metadata) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Available
}

// FindAlternative looks up the catalog's alternatives for the track and
// swaps in the first available one.
func (m *Metadata) FindAlternative() bool {
	uri := m.URI()
	docs, err := m.client.fetchAlternatives(context.Background(), uri)
	if err != nil {
		m.client.logger.Warn("alternative lookup failed",
			slog.String("uri", uri),
			slog.String("error", err.Error()))
		return false
	}

	for _, doc := range docs {
		if !doc.Available || doc.URI == "" {
			continue
		}
		m.mu.Lock()
		m.doc = doc
		m.mu.Unlock()
		return true
	}
	return false
}

func (m *Metadata) Restrictions() []domain.Restriction {
	m.mu.Lock()
	defer m.mu.Unlock()
	restrictions := make([]domain.Restriction, 0, len(m.doc.Restrictions))
	for _, doc := range m.doc.Restrictions {
		restrictions = append(restrictions, domain.Restriction{
			CountriesAllowed:   doc.CountriesAllowed,
			CountriesForbidden: doc.CountriesForbidden,
			Catalogues:         doc.Catalogues,
		})
	}
	return restrictions
}

func (m *Metadata) DurationMS() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.DurationMS
}

func (m *Metadata) NotifyStarted(trackLogID string, positionMS int64) {
	m.client.postEvent(playbackEventDoc{
		TrackURI:   m.URI(),
		TrackLogID: trackLogID,
		Kind:       string(domain.PlaybackStarted),
		PositionMS: positionMS,
	})
}

func (m *Metadata) NotifyEnded(trackLogID string, positionMS int64) {
	m.client.postEvent(playbackEventDoc{
		TrackURI:   m.URI(),
		TrackLogID: trackLogID,
		Kind:       string(domain.PlaybackEnded),
		PositionMS: positionMS,
	})
}

var _ ports.MetadataService = (*Client)(nil)
var _ ports.TrackMetadata = (*Metadata)(nil)
