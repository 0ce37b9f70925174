package domain

import "time"

// Restriction describes a territorial/catalogue availability rule attached to
// a track's metadata. Recorded for diagnostics only; the session never
// enforces restrictions itself.
type Restriction struct {
	CountriesAllowed   []string `json:"countriesAllowed,omitempty"`
	CountriesForbidden []string `json:"countriesForbidden,omitempty"`
	Catalogues         []string `json:"catalogues,omitempty"`
}

// SessionState is a point-in-time snapshot of a track session.
type SessionState struct {
	URI        string       `json:"uri"`
	Playing    bool         `json:"playing"`
	Ended      bool         `json:"ended"`
	PositionMS int64        `json:"positionMs"`
	DurationMS int64        `json:"durationMs,omitempty"`
	Streams    []StreamInfo `json:"streams,omitempty"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}
