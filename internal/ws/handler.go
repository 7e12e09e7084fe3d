package ws

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/gatehouse-app/backend/internal/auth"
	"github.com/gatehouse-app/backend/internal/sse"
)

// Handler is the WebSocket transport onto the broadcast hub. Native clients
// that cannot hold an EventSource open use this endpoint; they receive the
// same frames the event-stream clients do.
type Handler struct {
	hub        *sse.Hub
	jwtService *auth.JWTService
	keepAlive  time.Duration
	upgrader   websocket.Upgrader
}

func NewHandler(hub *sse.Hub, jwtService *auth.JWTService, keepAlive time.Duration, allowedOrigins []string) *Handler {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &Handler{
		hub:        hub,
		jwtService: jwtService,
		keepAlive:  keepAlive,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     OriginChecker(allowedOrigins),
		},
	}
}

// RegisterRoutes wires the WebSocket endpoint.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/events", h.ServeWS).Methods(http.MethodGet)
}

// wsConn adapts a websocket connection to the hub's Conn. Writes are
// serialized because broadcasts and the keep-alive ticker run concurrently.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, p)
}

// ServeWS handles GET /ws/events.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	slot, unregister := h.hub.Register(&wsConn{conn: conn})
	defer unregister()
	log.Printf("ws: stream %d opened (user=%s)", slot, userID)

	// Read pump — clients send nothing meaningful; reading is how we
	// notice they are gone.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					log.Printf("ws: stream %d read error: %v", slot, err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Printf("ws: stream %d closed", slot)
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !h.hub.KeepAlive(slot) {
				log.Printf("ws: stream %d evicted on keep-alive", slot)
				return
			}
		}
	}
}

// authenticate accepts a bearer token or a ?token= query parameter, since
// browser WebSocket constructors cannot set headers.
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
