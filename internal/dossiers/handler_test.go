package dossiers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/pkg/pagination"
)

func now() time.Time {
	return time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
}

type mockReader struct {
	items    []dossiers.Dossier
	tasks    map[uuid.UUID][]dossiers.Task
	lastPage pagination.PageRequest
	filters  dossiers.Filters
}

func (m *mockReader) List(_ context.Context, page pagination.PageRequest, filters dossiers.Filters) (*pagination.PageResult[dossiers.Dossier], error) {
	m.lastPage = page
	m.filters = filters
	result := pagination.NewPageResult(m.items, len(m.items), page.Page, page.PageSize)
	return &result, nil
}

func (m *mockReader) Detail(_ context.Context, id uuid.UUID) (*dossiers.Detail, error) {
	for _, d := range m.items {
		if d.ID == id {
			return &dossiers.Detail{Dossier: d, Tasks: m.tasks[id]}, nil
		}
	}
	return nil, dossiers.ErrNotFound
}

func setupMux(reader dossiers.Reader) *http.ServeMux {
	h := dossiers.NewHandler(
		reader,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)

	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}
	return mux
}

func TestHandlerList(t *testing.T) {
	reader := &mockReader{items: []dossiers.Dossier{
		{ID: uuid.New(), Code: "HS-1", Status: dossiers.StatusSubmitted},
		{ID: uuid.New(), Code: "HS-2", Status: dossiers.StatusApproved},
	}}

	rec := httptest.NewRecorder()
	setupMux(reader).ServeHTTP(rec, httptest.NewRequest("GET", "/dossiers?page_size=500&status=Approved", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if reader.lastPage.PageSize != 100 {
		t.Errorf("page size = %d, want clamped to 100", reader.lastPage.PageSize)
	}
	if reader.filters.Status == nil || *reader.filters.Status != "Approved" {
		t.Errorf("status filter = %v", reader.filters.Status)
	}

	var result pagination.PageResult[dossiers.Dossier]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Total != 2 || len(result.Data) != 2 {
		t.Errorf("result = %+v", result)
	}
}

func TestHandlerFind(t *testing.T) {
	id := uuid.New()
	reader := &mockReader{
		items: []dossiers.Dossier{{ID: id, Code: "HS-1"}},
		tasks: map[uuid.UUID][]dossiers.Task{id: {{ID: uuid.New(), DossierID: id, Order: 1}}},
	}
	mux := setupMux(reader)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/dossiers/" + id.String(), http.StatusOK},
		{"missing", "/dossiers/" + uuid.NewString(), http.StatusNotFound},
		{"invalid id", "/dossiers/xyz", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/dossiers/"+id.String(), nil))

	var detail dossiers.Detail
	if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(detail.Tasks) != 1 || detail.Code != "HS-1" {
		t.Errorf("detail = %+v", detail)
	}
}
