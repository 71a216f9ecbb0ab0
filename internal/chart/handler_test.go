package chart

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatplan/seatplan/internal/auth"
	"github.com/seatplan/seatplan/internal/layout"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &ValidationError{Errors: []string{"a", "b"}}, http.StatusUnprocessableEntity},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	handleServiceError(rec, &ValidationError{Errors: []string{"a", "b"}})
	var body struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"a", "b"}, body.Errors)
}

func TestPreviewChairs(t *testing.T) {
	h := NewHandler(nil)

	rec := httptest.NewRecorder()
	h.PreviewChairs(rec, httptest.NewRequest(http.MethodPost, "/api/chairs",
		strings.NewReader(`{"shape":"rectangular","x":0,"y":0,"width":200,"height":100,"capacity":12}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Shape  layout.TableShape `json:"shape"`
		Chairs []layout.Chair    `json:"chairs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, layout.ShapeRectangular, body.Shape)
	assert.Len(t, body.Chairs, 12)

	rec = httptest.NewRecorder()
	h.PreviewChairs(rec, httptest.NewRequest(http.MethodPost, "/api/chairs", strings.NewReader(`{"capacity":41}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(nil).Validate(rec, httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(`{"items":[]}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":false,"errors":["layout is empty: nothing to save"]}`, rec.Body.String())
}

func TestSaveLayoutHandler(t *testing.T) {
	svc, mock, _ := newTestService(t)
	expectChart(mock, "chart_1", "user_1")
	expectInsertSnapshot(mock, "chart_1", 5)
	mock.ExpectExec("UPDATE charts SET name").
		WithArgs("chart_1", "Gala").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	r := mux.NewRouter()
	r.HandleFunc("/api/charts/{chartId}/layout", NewHandler(svc).SaveLayout).Methods("PUT")

	body, err := json.Marshal(validLayout("chart_1"))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/api/charts/chart_1/layout", bytes.NewReader(body))
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: "user_1"}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res SaveResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, int32(5), res.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportSVGHandler(t *testing.T) {
	svc, mock, _ := newTestService(t)
	expectChart(mock, "chart_1", "user_1")
	expectSnapshot(mock, "chart_1", 1, validLayout("chart_1"))

	r := mux.NewRouter()
	r.HandleFunc("/api/charts/{chartId}/export.svg", NewHandler(svc).ExportSVG).Methods("GET")

	req := httptest.NewRequest(http.MethodGet, "/api/charts/chart_1/export.svg", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: "user_1"}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, 8, strings.Count(rec.Body.String(), "data-seat="))
}
