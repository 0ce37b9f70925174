package apihttp

import (
	"net/http"
	"strconv"
)

// handleTracks lists the state of every active session.
func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": s.manager.States()})
}

// handleTrackByURI dispatches /tracks/{uri}, /tracks/{uri}/stream and
// /tracks/{uri}/end.
func (s *Server) handleTrackByURI(w http.ResponseWriter, r *http.Request) {
	uri, action := trackRoute(r.URL.Path)
	if uri == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "track uri is required")
		return
	}

	switch action {
	case "stream":
		s.handleStream(w, r, uri)
	case "end":
		s.handleEnd(w, r, uri)
	default:
		s.handleTrackState(w, r, uri)
	}
}

func (s *Server) handleTrackState(w http.ResponseWriter, r *http.Request, uri string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	session, ok := s.manager.Lookup(uri)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no session for track")
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

// handleEnd reports the end of playback for a track. Idempotent at the HTTP
// level: repeated calls are accepted but only the first one has effect.
func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request, uri string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	session, ok := s.manager.Lookup(uri)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no session for track")
		return
	}
	session.End()
	writeJSON(w, http.StatusOK, session.State())
}

func (s *Server) handlePlaybackHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "playback history is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	events, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
