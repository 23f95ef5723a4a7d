package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tumorboard/internal/fanout"
	"tumorboard/internal/hub"
	"tumorboard/internal/room"
	"tumorboard/pkg/interfaces"
	"tumorboard/pkg/types"
)

// memoryCaseStore is an in-memory CaseStore for handler tests.
type memoryCaseStore struct {
	cases     map[string]*types.Case
	healthErr error
	listErr   error
}

func newMemoryCaseStore() *memoryCaseStore {
	return &memoryCaseStore{cases: make(map[string]*types.Case)}
}

func (m *memoryCaseStore) CreateCase(ctx context.Context, c *types.Case) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = "generated-id"
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	m.cases[c.ID] = c
	return nil
}

func (m *memoryCaseStore) GetCase(ctx context.Context, caseID string) (*types.Case, error) {
	c, ok := m.cases[caseID]
	if !ok {
		return nil, interfaces.ErrCaseNotFound
	}
	return c, nil
}

func (m *memoryCaseStore) ListCases(ctx context.Context) ([]*types.Case, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*types.Case
	for _, c := range m.cases {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryCaseStore) HealthCheck(ctx context.Context) error { return m.healthErr }
func (m *memoryCaseStore) Close() error                          { return nil }

func newTestServer() (*Server, *memoryCaseStore, *hub.Hub) {
	registry := fanout.NewRegistry()
	store := room.NewStore(registry, room.DefaultCursorStaleness)
	collab := hub.NewHub(store, registry)
	cases := newMemoryCaseStore()
	return NewServer(collab, cases, registry), cases, collab
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func TestCreateCase(t *testing.T) {
	srv, cases, _ := newTestServer()

	rr := doJSON(t, srv, http.MethodPost, "/api/cases", CreateCaseRequest{
		Title:       "Pancreatic mass workup",
		Modality:    "CT",
		AxialSlices: 512,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp CaseResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Case.ID == "" {
		t.Error("response must carry the assigned case ID")
	}
	if _, ok := cases.cases[resp.Case.ID]; !ok {
		t.Error("case must be persisted in the store")
	}
}

func TestCreateCase_ValidationErrors(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := doJSON(t, srv, http.MethodPost, "/api/cases", CreateCaseRequest{Modality: "CT"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing title: expected 400, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/cases", bytes.NewBufferString("{not json"))
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: expected 400, got %d", rr.Code)
	}
}

func TestGetCase(t *testing.T) {
	srv, cases, _ := newTestServer()
	cases.cases["case-7"] = &types.Case{ID: "case-7", Title: "Demo", Modality: "MRI"}

	rr := doJSON(t, srv, http.MethodGet, "/api/cases/case-7", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp CaseResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Case.ID != "case-7" {
		t.Errorf("unexpected case: %+v", resp.Case)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/cases/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown case: expected 404, got %d", rr.Code)
	}
}

func TestListCases(t *testing.T) {
	srv, cases, _ := newTestServer()

	rr := doJSON(t, srv, http.MethodGet, "/api/cases", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp ListCasesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Cases == nil || len(resp.Cases) != 0 {
		t.Errorf("empty registry must serialize as an empty array, got %v", resp.Cases)
	}

	cases.cases["case-1"] = &types.Case{ID: "case-1", Title: "One", Modality: "CT"}
	rr = doJSON(t, srv, http.MethodGet, "/api/cases", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Cases) != 1 {
		t.Errorf("expected 1 case, got %d", len(resp.Cases))
	}

	cases.listErr = errors.New("disk on fire")
	rr = doJSON(t, srv, http.MethodGet, "/api/cases", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("store failure: expected 500, got %d", rr.Code)
	}
}

func TestGetRoomState(t *testing.T) {
	srv, _, collab := newTestServer()

	rr := doJSON(t, srv, http.MethodGet, "/api/rooms/case-7/state", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown room: expected 404, got %d", rr.Code)
	}

	collab.Join("case-7", types.User{ID: "dr-chen", Name: "Dr. Chen", Specialty: "radiology"})

	rr = doJSON(t, srv, http.MethodGet, "/api/rooms/case-7/state", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp RoomStateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Room.RoomID != "case-7" || resp.Room.LeaderID != "dr-chen" || len(resp.Room.Users) != 1 {
		t.Errorf("unexpected snapshot: %+v", resp.Room)
	}
}

func TestHealthCheck(t *testing.T) {
	srv, cases, _ := newTestServer()

	rr := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "healthy" || resp.Database != "healthy" {
		t.Errorf("unexpected health payload: %+v", resp)
	}
	if _, ok := resp.Subscribers["total_subscribers"]; !ok {
		t.Errorf("health must include fan-out stats, got %v", resp.Subscribers)
	}

	cases.healthErr = errors.New("locked")
	rr = doJSON(t, srv, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded registry: expected 503, got %d", rr.Code)
	}
}

func TestMethodRouting(t *testing.T) {
	srv, _, _ := newTestServer()
	rr := doJSON(t, srv, http.MethodDelete, "/api/cases", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for unrouted method, got %d", rr.Code)
	}
}
