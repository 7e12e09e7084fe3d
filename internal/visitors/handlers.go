package visitors

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gatehouse-app/backend/internal/httputil"
)

// Handlers provides the HTTP surface for visitor records.
type Handlers struct {
	store *Store
}

func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store}
}

// RegisterPublicRoutes wires the kiosk-facing endpoint. The registration
// terminal in the lobby is not authenticated.
func (h *Handlers) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/api/visitors", h.Create).Methods("POST")
}

// RegisterRoutes wires the staff-facing endpoints.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/visitors", h.List).Methods("GET")
	r.HandleFunc("/api/visitors/{id}", h.Get).Methods("GET")
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Company    string `json:"company"`
		Phone      string `json:"phone"`
		HostUserID string `json:"host_user_id"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.HostUserID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name and host_user_id are required")
		return
	}

	v := &Visitor{
		Name:       req.Name,
		Company:    req.Company,
		Phone:      req.Phone,
		HostUserID: req.HostUserID,
	}
	if err := h.store.Insert(r.Context(), v); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, v)
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.store.List(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"visitors": list})
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	v, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "visitor not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, v)
}
