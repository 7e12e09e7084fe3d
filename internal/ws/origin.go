package ws

import (
	"net/http"
	"strings"
)

// OriginChecker returns a CheckOrigin function for a gorilla/websocket
// Upgrader that accepts the configured origins. Requests without an Origin
// header (same-origin, non-browser clients, the kiosk shell) pass.
func OriginChecker(allowed []string) func(*http.Request) bool {
	origins := make([]string, 0, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range origins {
			if strings.EqualFold(origin, a) {
				return true
			}
		}
		return false
	}
}
