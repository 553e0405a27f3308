package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/trialgrid/trialsearch/internal/db"
	"github.com/trialgrid/trialsearch/internal/domain/entities"
	"github.com/trialgrid/trialsearch/internal/domain/query"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
	filtersuc "github.com/trialgrid/trialsearch/internal/usecase/filters"
	healthuc "github.com/trialgrid/trialsearch/internal/usecase/health"
	searchuc "github.com/trialgrid/trialsearch/internal/usecase/search"
)

func strPtr(s string) *string { return &s }

type mockIndex struct {
	result     *db.Result
	err        error
	similar    *db.Result
	similarErr error
	pingErr    error
}

func (m *mockIndex) Search(_ context.Context, _ query.Spec, _ int, _ []string) (*db.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockIndex) SimilarTo(_ context.Context, _ string, _ int, _ []string) (*db.Result, error) {
	if m.similarErr != nil {
		return nil, m.similarErr
	}
	if m.similar == nil {
		return &db.Result{}, nil
	}
	return m.similar, nil
}

func (m *mockIndex) Ping(context.Context) error { return m.pingErr }

type mockDocs struct {
	trial trial.Trial
	err   error
}

func (m *mockDocs) GetTrial(context.Context, string) (trial.Trial, error) {
	return m.trial, m.err
}

type emptyEntities struct{}

func (emptyEntities) Entities(context.Context, string) entities.Normalized {
	return entities.Normalized{}
}

type mockAggs struct {
	facets map[string][]db.Bucket
	err    error
}

func (m *mockAggs) Facets(context.Context, []string) (map[string][]db.Bucket, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.facets, nil
}

func newTestServer(idx *mockIndex, docs *mockDocs, aggs *mockAggs) http.Handler {
	if docs == nil {
		docs = &mockDocs{}
	}
	if aggs == nil {
		aggs = &mockAggs{facets: map[string][]db.Bucket{}}
	}
	searchSvc := searchuc.New(idx, docs, emptyEntities{}, query.NewBuilder(query.Config{}), searchuc.Config{})
	filtersSvc := filtersuc.New(aggs)
	healthSvc := healthuc.New(idx, nil)

	srv := NewServer(searchSvc, filtersSvc, healthSvc, zap.NewNop())
	r := chi.NewRouter()
	srv.Register(r)
	return r
}

func TestSearchEndpoint(t *testing.T) {
	idx := &mockIndex{result: &db.Result{
		Total: 1,
		Hits: []db.Hit{{
			Trial: trial.Trial{NCTID: "NCT00000001", BriefTitle: strPtr("Aspirin Trial")},
			Score: 4.2,
		}},
	}}
	h := newTestServer(idx, nil, nil)

	body := `{"query": "aspirin heart disease"}`
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	if resp.Results[0].Trial.NCTID != "NCT00000001" {
		t.Errorf("nct_id = %q", resp.Results[0].Trial.NCTID)
	}
	if resp.Results[0].Tier != "exact" {
		t.Errorf("tier = %q, want %q", resp.Results[0].Tier, "exact")
	}
	if len(resp.Similar) != 0 {
		t.Errorf("similar = %d, want 0", len(resp.Similar))
	}
	if resp.SearchType != "basic" {
		t.Errorf("search_type = %q, want %q", resp.SearchType, "basic")
	}
}

func TestSearchEndpointEmptyQuery(t *testing.T) {
	h := newTestServer(&mockIndex{result: &db.Result{}}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query": "   "}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Code != CodeEmptyQuery {
		t.Errorf("code = %q, want %q", resp.Code, CodeEmptyQuery)
	}
}

func TestSearchEndpointMalformedBody(t *testing.T) {
	h := newTestServer(&mockIndex{result: &db.Result{}}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query": `))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSearchEndpointBackendDown(t *testing.T) {
	h := newTestServer(&mockIndex{err: &db.Error{Op: db.OpSearch, Err: context.DeadlineExceeded}}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query": "aspirin"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Code != CodeSearchUnavailable {
		t.Errorf("code = %q, want %q", resp.Code, CodeSearchUnavailable)
	}
}

func TestGetTrialEndpoint(t *testing.T) {
	docs := &mockDocs{trial: trial.Trial{NCTID: "NCT12345678", BriefTitle: strPtr("Statin Study")}}
	h := newTestServer(&mockIndex{result: &db.Result{}}, docs, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/trials/NCT12345678", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got trial.Trial
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.BriefTitle == nil || *got.BriefTitle != "Statin Study" {
		t.Errorf("brief_title = %v", got.BriefTitle)
	}
}

func TestGetTrialEndpointInvalidID(t *testing.T) {
	h := newTestServer(&mockIndex{result: &db.Result{}}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/trials/not-an-id", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetTrialEndpointNotFound(t *testing.T) {
	docs := &mockDocs{err: &db.Error{Op: db.OpGetDoc, Err: db.ErrDocNotFound}}
	h := newTestServer(&mockIndex{result: &db.Result{}}, docs, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/trials/NCT99999999", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Code != CodeTrialNotFound {
		t.Errorf("code = %q, want %q", resp.Code, CodeTrialNotFound)
	}
}

func TestSimilarEndpoint(t *testing.T) {
	idx := &mockIndex{
		result: &db.Result{},
		similar: &db.Result{
			Total: 2,
			Hits: []db.Hit{
				{Trial: trial.Trial{NCTID: "NCT00000002"}, Score: 2.0},
				{Trial: trial.Trial{NCTID: "NCT00000003"}, Score: 1.5},
			},
		},
	}
	h := newTestServer(idx, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/trials/NCT00000001/similar?limit=5", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp SimilarResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
	for _, item := range resp.Items {
		if item.Tier != "similar" {
			t.Errorf("tier = %q, want %q", item.Tier, "similar")
		}
	}
}

func TestSimilarEndpointBadLimit(t *testing.T) {
	h := newTestServer(&mockIndex{result: &db.Result{}}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/trials/NCT00000001/similar?limit=abc", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestFiltersEndpoint(t *testing.T) {
	aggs := &mockAggs{facets: map[string][]db.Bucket{
		trial.FieldPhase: {
			{Value: "PHASE3", Count: 120},
			{Value: "PHASE2", Count: 80},
		},
		trial.FieldOverallStatus: {
			{Value: "RECRUITING", Count: 200},
		},
	}}
	h := newTestServer(&mockIndex{result: &db.Result{}}, nil, aggs)

	req := httptest.NewRequest(http.MethodGet, "/api/filters", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp FiltersResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(resp.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(resp.Phases))
	}
	if resp.Phases[0].Value != "PHASE3" || resp.Phases[0].Count != 120 {
		t.Errorf("phases[0] = %+v", resp.Phases[0])
	}
	if len(resp.Statuses) != 1 {
		t.Errorf("statuses = %d, want 1", len(resp.Statuses))
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(&mockIndex{result: &db.Result{}}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if resp.Checks["index"] != "ok" {
		t.Errorf("index check = %q, want %q", resp.Checks["index"], "ok")
	}
}

func TestHealthEndpointDegraded(t *testing.T) {
	h := newTestServer(&mockIndex{result: &db.Result{}, pingErr: context.DeadlineExceeded}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
