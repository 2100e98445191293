package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"urban-store/internal/ledger"
	"urban-store/internal/metrics"
	"urban-store/internal/repo"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer() *Server {
	return &Server{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: metrics.Registry("test"),
	}
}

func TestWriteErrorStatusMapping(t *testing.T) {
	s := testServer()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantInBody string
	}{
		{"ledger not found", ledger.ErrNotFound, http.StatusNotFound, "not found"},
		{"repo not found", repo.ErrNotFound, http.StatusNotFound, "not found"},
		{"invalid request", ledger.ErrInvalidRequest, http.StatusBadRequest, ""},
		{"insufficient stock", &ledger.InsufficientStockError{
			ProductName: "Gorra", Available: 1, Requested: 3,
		}, http.StatusBadRequest, "Gorra"},
		{"duplicate sku", repo.ErrDuplicateSKU, http.StatusBadRequest, "SKU already exists"},
		{"anything else", errors.New("pool closed"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.writeError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)

			var body struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Contains(t, body.Message, tc.wantInBody)
		})
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.writeError(rec, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestMakePagination(t *testing.T) {
	cases := []struct {
		total, page, limit int
		want               pagination
	}{
		{0, 1, 20, pagination{Total: 0, Page: 1, Pages: 0}},
		{1, 1, 20, pagination{Total: 1, Page: 1, Pages: 1}},
		{20, 1, 20, pagination{Total: 20, Page: 1, Pages: 1}},
		{21, 2, 20, pagination{Total: 21, Page: 2, Pages: 2}},
		{5, 0, 0, pagination{Total: 5, Page: 1, Pages: 5}},
	}
	for _, tc := range cases {
		got := makePagination(tc.total, tc.page, tc.limit)
		assert.Equal(t, tc.want, got, "total=%d page=%d limit=%d", tc.total, tc.page, tc.limit)
	}
}

func TestPathID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/products/x", nil)
	r.SetPathValue("id", "b1c2d3e4-0000-4000-8000-000000000001")
	id, err := pathID(r)
	require.NoError(t, err)
	assert.Equal(t, "b1c2d3e4-0000-4000-8000-000000000001", id)

	r.SetPathValue("id", "not-a-uuid")
	_, err = pathID(r)
	assert.Error(t, err)
}

func TestQueryTime(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/sales?from=2026-08-01&to=2026-08-29T12:00:00Z", nil)

	from, err := queryTime(r, "from")
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Equal(t, "2026-08-01", from.Format("2006-01-02"))

	to, err := queryTime(r, "to")
	require.NoError(t, err)
	require.NotNil(t, to)
	assert.Equal(t, 12, to.Hour())

	missing, err := queryTime(r, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)

	r = httptest.NewRequest(http.MethodGet, "/api/sales?from=yesterday", nil)
	_, err = queryTime(r, "from")
	assert.Error(t, err)
}

func TestInstrumentCountsRequests(t *testing.T) {
	s := testServer()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := s.instrument(mux)

	okCounter := s.metrics.HTTPRequests.WithLabelValues("GET /ping", "2xx")
	missCounter := s.metrics.HTTPRequests.WithLabelValues("unmatched", "4xx")
	okBefore := testutil.ToFloat64(okCounter)
	missBefore := testutil.ToFloat64(missCounter)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(okCounter))
	assert.Equal(t, missBefore+1, testutil.ToFloat64(missCounter))
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/products",
		strings.NewReader(`{"name":"Playera","typo":true}`))

	var body struct {
		Name string `json:"name"`
	}
	err := decodeJSON(r, &body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid json body")
}
