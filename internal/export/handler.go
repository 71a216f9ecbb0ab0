package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/seatplan/seatplan/internal/document"
)

const maxUploadSize = 5 << 20 // 5MB

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// ExportSVG handles POST /export/svg with a layout JSON body and returns the
// rendered SVG as a download.
func (h *Handler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var l document.Layout
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		http.Error(w, "invalid layout", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := WriteSVG(&buf, &l); err != nil {
		slog.Error("render svg", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	ServeSVG(w, l.Name, buf.Bytes())
}

// ServeSVG writes rendered SVG bytes as an attachment named after the layout.
func ServeSVG(w http.ResponseWriter, name string, svg []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.svg"`, FileName(name)))
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}

// FileName reduces a layout name to a safe file name.
func FileName(name string) string {
	if name == "" {
		name = "layout"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
