package attendance

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gatehouse-app/backend/internal/httputil"
)

// Handlers provides the HTTP surface for attendance. Check-in and check-out
// are kiosk-facing; the attendance log is staff-facing.
type Handlers struct {
	store    *Store
	notifier *Notifier
}

func NewHandlers(store *Store, notifier *Notifier) *Handlers {
	return &Handlers{store: store, notifier: notifier}
}

// RegisterPublicRoutes wires the kiosk-facing endpoints.
func (h *Handlers) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/api/attendance/check-in", h.CheckIn).Methods("POST")
	r.HandleFunc("/api/attendance/{id}/check-out", h.CheckOut).Methods("POST")
}

// RegisterRoutes wires the staff-facing endpoints.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/attendance", h.List).Methods("GET")
}

func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VisitorID string `json:"visitor_id"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VisitorID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "visitor_id is required")
		return
	}

	rec, err := h.store.CheckIn(r.Context(), req.VisitorID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "unknown visitor")
		return
	}

	report("check-in fan-out", h.notifier.CheckedIn(r.Context(), rec))

	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handlers) CheckOut(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.store.CheckOut(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "no open attendance record")
		return
	}

	report("check-out fan-out", h.notifier.CheckedOut(r.Context(), rec))

	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.store.List(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"records": list})
}
