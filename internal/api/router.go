package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/music-gateway/internal/audit"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/commands", s.handleListCommands)
	})

	// Everything else is a protocol command, over HTTP or WebSocket.
	r.HandleFunc("/*", s.handleProtocol)

	return r
}

// handleProtocol upgrades WebSocket requests and answers every other
// request with the command reply as text/plain.
func (s *Server) handleProtocol(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.handleWebSocket(w, r)
		return
	}

	raw := r.RequestURI
	if raw == "" {
		raw = r.URL.RequestURI()
	}

	reply, err := s.Dispatch(r.Context(), raw, SourceHTTP)
	if err != nil {
		writeText(w, http.StatusInternalServerError, []byte(err.Error()))
		return
	}
	writeText(w, http.StatusOK, reply)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"zones":   s.zones.Count(),
	})
}

// handleListCommands returns recent journal entries. Query parameters:
// limit (default 50, max 200) and zone.
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeNotFound(w, "command journal is disabled")
		return
	}

	filter := audit.Filter{}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("zone"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "zone must be a positive integer")
			return
		}
		filter.ZoneID = n
	}

	entries, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing command journal", "error", err)
		writeInternalError(w, "could not read command journal")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"commands": entries,
		"count":    len(entries),
	})
}
