package notifications

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gatehouse-app/backend/internal/auth"
	"github.com/gatehouse-app/backend/internal/httputil"
	"github.com/gatehouse-app/backend/internal/metrics"
)

// Handlers provides the HTTP surface of the notification log.
type Handlers struct {
	store   *Store
	metrics *metrics.Metrics
}

func NewHandlers(store *Store, m *metrics.Metrics) *Handlers {
	return &Handlers{store: store, metrics: m}
}

// RegisterRoutes wires the notification endpoints onto the provided router.
// All of them operate on the authenticated user's slice of the log.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/notifications", h.List).Methods("GET")
	r.HandleFunc("/api/notifications", h.Create).Methods("POST")
	r.HandleFunc("/api/notifications", h.ClearAll).Methods("DELETE")
	r.HandleFunc("/api/notifications/unread-count", h.UnreadCount).Methods("GET")
	r.HandleFunc("/api/notifications/{id}/read", h.MarkRead).Methods("PUT")
	r.HandleFunc("/api/notifications/read-all", h.MarkAllRead).Methods("PUT")
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	list, err := h.store.ListFor(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": list,
	})
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	if auth.UserIDFromContext(r.Context()) == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input CreateInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.ToUserID == "" || input.Title == "" {
		httputil.WriteError(w, http.StatusBadRequest, "to_user_id and title are required")
		return
	}
	switch input.Type {
	case TypeTaskAssigned, TypeStatusUpdate, TypeEscalation, TypeNote:
	default:
		httputil.WriteError(w, http.StatusBadRequest, "unknown notification type")
		return
	}

	n, outcome, err := h.store.Create(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.metrics.IncNotificationsCreated()

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"notification": n,
		"announce":     outcome,
	})
}

func (h *Handlers) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.store.UnreadCountFor(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"unread_count": count,
	})
}

func (h *Handlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	if auth.UserIDFromContext(r.Context()) == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.store.MarkRead(r.Context(), id); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.store.MarkAllReadFor(r.Context(), userID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) ClearAll(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.store.ClearAllFor(r.Context(), userID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
