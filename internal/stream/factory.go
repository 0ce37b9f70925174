package stream

import (
	"log/slog"
	"net/http"

	"trackstream/internal/domain"
	"trackstream/internal/domain/ports"
)

// Factory builds HTTP-backed streams for session registries.
type Factory struct {
	Client *http.Client
	Logger *slog.Logger
}

func (f *Factory) NewStream(index int, r domain.Range) ports.StreamHandle {
	return New(index, r, f.Client, f.Logger)
}

var _ ports.StreamFactory = (*Factory)(nil)
var _ ports.StreamHandle = (*Stream)(nil)
