package ports

import "context"

// SourceInfo is the payload of a successful stream-source resolution. URI is
// the source locator the byte transport connects to; TrackLogID keys the
// playback events reported for this session. A payload without a URI is
// treated as a failed resolution.
type SourceInfo struct {
	URI        string `json:"uri"`
	TrackLogID string `json:"lid"`
}

// SourceResolver resolves the stream source for a track whose metadata has
// already been fetched. Resolution is asynchronous; exactly one of onSuccess
// or onError fires per call, on the resolver's own completion path.
type SourceResolver interface {
	ResolveStreamURI(ctx context.Context, meta TrackMetadata, onSuccess func(SourceInfo), onError func(error))
}
