package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akerimB/kpi-manager/internal/alerting"
	"github.com/akerimB/kpi-manager/internal/efficiency"
	"github.com/akerimB/kpi-manager/internal/engine"
	"github.com/akerimB/kpi-manager/internal/evidence"
	"github.com/akerimB/kpi-manager/internal/model"
)

// fakeService records the last call and returns err when set.
type fakeService struct {
	err error

	scope     model.Scope
	scoreReq  engine.ScoreRequest
	factoryID string
	periods   []model.Period
	effReq    engine.EfficiencyRequest
	evReq     engine.EvidenceRequest
	alertReq  engine.AlertRequest
	submitted []model.KpiValue
}

func (f *fakeService) Score(_ context.Context, scope model.Scope, req engine.ScoreRequest) (*engine.ScoreResult, error) {
	f.scope, f.scoreReq = scope, req
	if f.err != nil {
		return nil, f.err
	}
	return &engine.ScoreResult{Periods: req.Periods, FactoryID: req.FactoryID}, nil
}

func (f *fakeService) FactoryScorecard(_ context.Context, scope model.Scope, factoryID string, periods []model.Period) (*engine.Scorecard, error) {
	f.scope, f.factoryID, f.periods = scope, factoryID, periods
	if f.err != nil {
		return nil, f.err
	}
	return &engine.Scorecard{
		Factory:     model.Factory{ID: factoryID, Code: "IST"},
		ScoreResult: &engine.ScoreResult{Periods: periods, FactoryID: factoryID},
	}, nil
}

func (f *fakeService) BudgetEfficiency(_ context.Context, scope model.Scope, req engine.EfficiencyRequest) (*efficiency.Report, error) {
	f.scope, f.effReq = scope, req
	if f.err != nil {
		return nil, f.err
	}
	return &efficiency.Report{Period: req.Period, Mode: req.Mode}, nil
}

func (f *fakeService) Evidence(_ context.Context, scope model.Scope, req engine.EvidenceRequest) (*evidence.Result, error) {
	f.scope, f.evReq = scope, req
	if f.err != nil {
		return nil, f.err
	}
	return &evidence.Result{GroupBy: req.GroupBy, MinN: 5, Groups: []evidence.Group{{Key: "10", Count: 7}}}, nil
}

func (f *fakeService) Alerts(_ context.Context, scope model.Scope, req engine.AlertRequest) ([]alerting.Alert, error) {
	f.scope, f.alertReq = scope, req
	if f.err != nil {
		return nil, f.err
	}
	return []alerting.Alert{{Rule: "low", Severity: alerting.SeverityCritical}}, nil
}

func (f *fakeService) SubmitValues(_ context.Context, scope model.Scope, values []model.KpiValue) (int64, error) {
	f.scope, f.submitted = scope, values
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(values)), nil
}

func do(t *testing.T, h http.Handler, method, target, scope string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if scope != "" {
		req.Header.Set(scopeHeader, scope)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestRouter_Health(t *testing.T) {
	h := buildRouter(&fakeService{}, routerOptions{AllowedOrigins: []string{"*"}})

	rr := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "ok", decode(t, rr)["status"])
}

func TestRouter_Scores(t *testing.T) {
	svc := &fakeService{}
	h := buildRouter(svc, routerOptions{})

	rr := do(t, h, http.MethodGet, "/api/v1/scores?periods=2024-q2,2024-Q1&factory_id=f1&theme=digital&kpi_ids=1,2&top=3", "f1,f2", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, []model.Period{"2024-Q1", "2024-Q2"}, svc.scoreReq.Periods)
	assert.Equal(t, "f1", svc.scoreReq.FactoryID)
	assert.Equal(t, "digital", svc.scoreReq.Theme)
	assert.Equal(t, []int64{1, 2}, svc.scoreReq.KpiIDs)
	assert.Equal(t, 3, svc.scoreReq.TopN)
	assert.Equal(t, []string{"f1", "f2"}, svc.scope.FactoryIDs)
	assert.Equal(t, "f1", decode(t, rr)["factory_id"])
}

func TestRouter_ScoresBadQuery(t *testing.T) {
	h := buildRouter(&fakeService{}, routerOptions{})

	for _, target := range []string{
		"/api/v1/scores?periods=2024-Q9",
		"/api/v1/scores?periods=2024-Q1&kpi_ids=abc",
		"/api/v1/scores?periods=2024-Q1&top=many",
	} {
		rr := do(t, h, http.MethodGet, target, "all", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestRouter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"out of scope", eris.Wrap(engine.ErrOutOfScope, "engine: factory f9"), http.StatusForbidden},
		{"missing selector", eris.Wrap(engine.ErrMissingSelector, "engine: period"), http.StatusBadRequest},
		{"invalid input", eris.Wrap(engine.ErrInvalidInput, "engine: mode"), http.StatusBadRequest},
		{"store failure", eris.Wrap(errors.New("connection reset"), "engine: load kpis"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := buildRouter(&fakeService{err: tt.err}, routerOptions{})
			rr := do(t, h, http.MethodGet, "/api/v1/scores?periods=2024-Q1", "all", nil)
			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusInternalServerError {
				assert.Equal(t, "internal error", decode(t, rr)["error"])
			}
		})
	}
}

func TestRouter_Scorecard(t *testing.T) {
	svc := &fakeService{}
	h := buildRouter(svc, routerOptions{})

	rr := do(t, h, http.MethodGet, "/api/v1/factories/f1/scorecard?periods=2024-Q2", "all", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "f1", svc.factoryID)
	assert.True(t, svc.scope.All)

	body := decode(t, rr)
	factory, ok := body["factory"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "IST", factory["code"])
	assert.Equal(t, "f1", body["factory_id"])
}

func TestRouter_Efficiency(t *testing.T) {
	svc := &fakeService{}
	h := buildRouter(svc, routerOptions{})

	rr := do(t, h, http.MethodGet, "/api/v1/efficiency?period=2024-Q2&previous_period=2023-Q4&mode=delta&factory_id=f2", "all", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, model.Period("2024-Q2"), svc.effReq.Period)
	assert.Equal(t, model.Period("2023-Q4"), svc.effReq.PreviousPeriod)
	assert.Equal(t, efficiency.ModeDelta, svc.effReq.Mode)
	assert.Equal(t, "f2", svc.effReq.FactoryID)

	rr = do(t, h, http.MethodGet, "/api/v1/efficiency?period=2024-Q2&mode=roi", "all", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_Evidence(t *testing.T) {
	svc := &fakeService{}
	h := buildRouter(svc, routerOptions{})

	rr := do(t, h, http.MethodGet, "/api/v1/evidence?period=2024-Q2&group_by=sector&min_n=10", "all", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, evidence.GroupBySector, svc.evReq.GroupBy)
	assert.Equal(t, 10, svc.evReq.MinN)

	groups, ok := decode(t, rr)["groups"].([]any)
	require.True(t, ok)
	assert.Len(t, groups, 1)

	rr = do(t, h, http.MethodGet, "/api/v1/evidence?group_by=region", "all", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_Alerts(t *testing.T) {
	svc := &fakeService{}
	h := buildRouter(svc, routerOptions{})

	rr := do(t, h, http.MethodGet, "/api/v1/alerts?period=2024-Q2&factory_id=f1", "f1", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "f1", svc.alertReq.FactoryID)
	assert.EqualValues(t, 1, decode(t, rr)["count"])
}

func TestRouter_SubmitValues(t *testing.T) {
	svc := &fakeService{}
	h := buildRouter(svc, routerOptions{})

	body := []byte(`{"values":[{"kpi_id":1,"factory_id":"f1","period":"2024-q2","value":42.5,"nace_code":"10.11"}]}`)
	rr := do(t, h, http.MethodPost, "/api/v1/values", "f1", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, svc.submitted, 1)
	assert.Equal(t, model.Period("2024-Q2"), svc.submitted[0].Period)
	assert.InDelta(t, 42.5, svc.submitted[0].Value, 1e-9)
	assert.EqualValues(t, 1, decode(t, rr)["upserted"])

	for _, bad := range []string{`not json`, `{"values":[]}`, `{"values":[{"kpi_id":1,"factory_id":"f1","period":"Q2"}]}`} {
		rr = do(t, h, http.MethodPost, "/api/v1/values", "f1", []byte(bad))
		assert.Equal(t, http.StatusBadRequest, rr.Code, bad)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	h := buildRouter(&fakeService{}, routerOptions{RateLimitRPS: 0.001, RateLimitBurst: 1})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/health", "", nil).Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := buildRouter(&fakeService{}, routerOptions{AllowedOrigins: []string{"https://dashboard.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/scores", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", scopeHeader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://dashboard.example", rr.Header().Get("Access-Control-Allow-Origin"))
}
