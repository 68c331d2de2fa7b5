package layouts

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/siteview/siteview/backend-go/internal/codec"
	"github.com/siteview/siteview/backend-go/internal/definitions"
)

const maxDefinitionsSize = 32 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name string `json:"name"`
}

type saveRequest struct {
	Name    string `json:"name"`
	Body    string `json:"body"`
	Version int    `json:"version"`
}

// Routes mounts the layout endpoints on r (already under /api).
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/layouts", h.List).Methods("GET")
	r.HandleFunc("/layouts", h.Create).Methods("POST")
	r.HandleFunc("/layouts/{layoutId}", h.Get).Methods("GET")
	r.HandleFunc("/layouts/{layoutId}", h.Save).Methods("PUT")
	r.HandleFunc("/layouts/{layoutId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/layouts/{layoutId}/text", h.Text).Methods("GET")
	r.HandleFunc("/layouts/{layoutId}/definitions", h.ImportDefinitions).Methods("POST")
	r.HandleFunc("/layouts/{layoutId}/preview.png", h.Preview).Methods("GET")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	layout, err := h.service.Create(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, layout)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	layout, err := h.service.Get(r.Context(), mux.Vars(r)["layoutId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, layout)
}

// Text returns the raw layout text for download.
func (h *Handler) Text(w http.ResponseWriter, r *http.Request) {
	layout, err := h.service.Get(r.Context(), mux.Vars(r)["layoutId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+layout.ID+`.ini"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(layout.Body))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	layouts, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("list layouts failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, layouts)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.service.Save(r.Context(), mux.Vars(r)["layoutId"], req.Name, req.Body, req.Version)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["layoutId"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ImportDefinitions takes the CPF/XML document as the raw request body.
func (h *Handler) ImportDefinitions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDefinitionsSize)

	layout, defs, err := h.service.ImportDefinitions(r.Context(), mux.Vars(r)["layoutId"], r.Body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"layout":      layout,
		"definitions": defs,
	})
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	if width < 0 || width > 8192 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "width out of range"})
		return
	}

	// Rendered into a buffer so a late failure can still become a JSON error.
	var buf bytes.Buffer
	if err := h.service.Preview(r.Context(), mux.Vars(r)["layoutId"], width, &buf); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func handleServiceError(w http.ResponseWriter, err error) {
	var parseErr *codec.LayoutParseError
	var importErr *definitions.ImportError
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &parseErr), errors.As(err, &importErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
