package chart

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/seatplan/seatplan/internal/auth"
	"github.com/seatplan/seatplan/internal/convert"
	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/export"
	"github.com/seatplan/seatplan/internal/layout"
)

const maxBodySize = 5 << 20 // 5MB

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name string `json:"name"`
}

type chairsRequest struct {
	Shape    string  `json:"shape"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Capacity int     `json:"capacity"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	chart, err := h.service.Create(r.Context(), req.Name, userID)
	if err != nil {
		slog.Error("create chart failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, chart)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	chartID := mux.Vars(r)["chartId"]

	chart, err := h.service.Get(r.Context(), chartID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chart)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	charts, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("list charts failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, charts)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	chartID := mux.Vars(r)["chartId"]

	err := h.service.Delete(r.Context(), chartID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetLatestLayout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	chartID := mux.Vars(r)["chartId"]

	data, err := h.service.GetLatestLayout(r.Context(), chartID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) SaveLayout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	chartID := mux.Vars(r)["chartId"]

	var l document.Layout
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&l); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid layout body"})
		return
	}

	result, err := h.service.SaveLayout(r.Context(), chartID, userID, &l)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ImportSections(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	chartID := mux.Vars(r)["chartId"]

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.service.ImportSections(r.Context(), chartID, userID, data)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	chartID := mux.Vars(r)["chartId"]

	data, err := h.service.GetLatestLayout(r.Context(), chartID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var l document.Layout
	if err := json.Unmarshal(data, &l); err != nil {
		handleServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSVG(&buf, &l); err != nil {
		handleServiceError(w, err)
		return
	}
	export.ServeSVG(w, l.Name, buf.Bytes())
}

// PreviewChairs computes chair positions for a single table without storing
// anything. Used by the template palette.
func (h *Handler) PreviewChairs(w http.ResponseWriter, r *http.Request) {
	var req chairsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	shape, ok := layout.ParseTableShape(req.Shape)
	if !ok {
		shape = layout.ShapeRound
	}
	size := layout.Size{Width: req.Width, Height: req.Height}
	if !size.Valid() {
		size = layout.DefaultTableSize(shape)
	}
	if req.Capacity < 1 || req.Capacity > layout.MaxTableCapacity {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "capacity must be between 1 and 40"})
		return
	}

	chairs := layout.CalculateChairs(shape, req.X, req.Y, size.Width, size.Height, req.Capacity)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"shape":  shape,
		"size":   size,
		"chairs": chairs,
	})
}

// Validate checks a layout body without saving it.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var l document.Layout
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&l); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid layout body"})
		return
	}
	writeJSON(w, http.StatusOK, convert.ValidateCanvasItems(l.Items))
}

func handleServiceError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": "invalid layout", "errors": verr.Errors})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
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
