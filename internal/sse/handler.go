package sse

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/gatehouse-app/backend/internal/auth"
)

// Handler is the thin transport around the hub: per request it opens a
// long-lived response stream, registers a connection, drives the keep-alive
// ticker and unregisters when the client goes away.
type Handler struct {
	hub        *Hub
	jwtService *auth.JWTService
	keepAlive  time.Duration
}

// NewHandler creates the streaming endpoint handler. keepAlive is the cadence
// between keep-alive frames; zero picks a default suitable for most proxies.
func NewHandler(hub *Hub, jwtService *auth.JWTService, keepAlive time.Duration) *Handler {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &Handler{
		hub:        hub,
		jwtService: jwtService,
		keepAlive:  keepAlive,
	}
}

// RegisterRoutes wires the streaming endpoint.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/events", h.ServeStream).Methods(http.MethodGet)
}

// flushConn adapts an http.ResponseWriter into the hub's Conn. Writes are
// serialized with a mutex because broadcasts and the keep-alive ticker run on
// different goroutines.
type flushConn struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func (c *flushConn) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(p); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

// ServeStream handles GET /api/events.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	conn := &flushConn{w: w, flusher: flusher}
	slot, unregister := h.hub.Register(conn)
	defer unregister()
	log.Printf("sse: stream %d opened (user=%s)", slot, userID)

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Printf("sse: stream %d closed", slot)
			return
		case <-ticker.C:
			if !h.hub.KeepAlive(slot) {
				log.Printf("sse: stream %d evicted on keep-alive", slot)
				return
			}
		}
	}
}

// authenticate accepts a bearer token or, because EventSource cannot set
// headers, a ?token= query parameter.
func (h *Handler) authenticate(r *http.Request) (string, bool) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		return "", false
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		return "", false
	}
	return claims.UserID, true
}
