package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/akerimB/kpi-manager/internal/alerting"
	"github.com/akerimB/kpi-manager/internal/efficiency"
	"github.com/akerimB/kpi-manager/internal/engine"
	"github.com/akerimB/kpi-manager/internal/evidence"
	"github.com/akerimB/kpi-manager/internal/model"
)

// scopeHeader carries the caller's access scope: "all" or a
// comma-separated factory id allowlist.
const scopeHeader = "X-Access-Scope"

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scoring HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", port),
			Handler: buildRouter(env.Engine, routerOptions{
				AllowedOrigins: cfg.Server.AllowedOrigins,
				RateLimitRPS:   cfg.Server.RateLimitRPS,
				RateLimitBurst: cfg.Server.RateLimitBurst,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// scoringService is the slice of the engine the HTTP API serves.
type scoringService interface {
	Score(ctx context.Context, scope model.Scope, req engine.ScoreRequest) (*engine.ScoreResult, error)
	FactoryScorecard(ctx context.Context, scope model.Scope, factoryID string, periods []model.Period) (*engine.Scorecard, error)
	BudgetEfficiency(ctx context.Context, scope model.Scope, req engine.EfficiencyRequest) (*efficiency.Report, error)
	Evidence(ctx context.Context, scope model.Scope, req engine.EvidenceRequest) (*evidence.Result, error)
	Alerts(ctx context.Context, scope model.Scope, req engine.AlertRequest) ([]alerting.Alert, error)
	SubmitValues(ctx context.Context, scope model.Scope, values []model.KpiValue) (int64, error)
}

// routerOptions configures cross-cutting middleware.
type routerOptions struct {
	AllowedOrigins []string
	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int
}

// buildRouter wires the API routes over svc.
func buildRouter(svc scoringService, opts routerOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", scopeHeader},
		MaxAge:         300,
	}))
	if opts.RateLimitRPS > 0 {
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimitRPS), max(opts.RateLimitBurst, 1))))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	h := &apiHandler{svc: svc}
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/scores", h.scores)
		r.Get("/factories/{factoryID}/scorecard", h.scorecard)
		r.Get("/efficiency", h.efficiency)
		r.Get("/evidence", h.evidence)
		r.Get("/alerts", h.alerts)
		r.Post("/values", h.submitValues)
	})
	return r
}

// rateLimit rejects requests beyond the limiter's rate with 429.
func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type apiHandler struct {
	svc scoringService
}

func requestScope(r *http.Request) model.Scope {
	return model.ParseScope(r.Header.Get(scopeHeader))
}

func (h *apiHandler) scores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	periods, err := model.ParsePeriods(q.Get("periods"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	kpiIDs, err := parseIDs(q.Get("kpi_ids"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	top, err := optionalInt(q.Get("top"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	res, err := h.svc.Score(r.Context(), requestScope(r), engine.ScoreRequest{
		Periods:   periods,
		FactoryID: q.Get("factory_id"),
		Theme:     q.Get("theme"),
		KpiIDs:    kpiIDs,
		TopN:      top,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *apiHandler) scorecard(w http.ResponseWriter, r *http.Request) {
	periods, err := model.ParsePeriods(r.URL.Query().Get("periods"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	card, err := h.svc.FactoryScorecard(r.Context(), requestScope(r), chi.URLParam(r, "factoryID"), periods)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *apiHandler) efficiency(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := optionalPeriod(q.Get("period"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	prev, err := optionalPeriod(q.Get("previous_period"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	mode, err := efficiency.ParseMode(q.Get("mode"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	rep, err := h.svc.BudgetEfficiency(r.Context(), requestScope(r), engine.EfficiencyRequest{
		Period:         period,
		PreviousPeriod: prev,
		Mode:           mode,
		FactoryID:      q.Get("factory_id"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *apiHandler) evidence(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := optionalPeriod(q.Get("period"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	by, err := evidence.ParseGroupBy(q.Get("group_by"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	minN, err := optionalInt(q.Get("min_n"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	res, err := h.svc.Evidence(r.Context(), requestScope(r), engine.EvidenceRequest{
		Period:    period,
		FactoryID: q.Get("factory_id"),
		GroupBy:   by,
		MinN:      minN,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *apiHandler) alerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := optionalPeriod(q.Get("period"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	alerts, err := h.svc.Alerts(r.Context(), requestScope(r), engine.AlertRequest{
		Period:    period,
		FactoryID: q.Get("factory_id"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
}

// submitRequest is the POST /api/v1/values body.
type submitRequest struct {
	Values []struct {
		KpiID     int64   `json:"kpi_id"`
		FactoryID string  `json:"factory_id"`
		Period    string  `json:"period"`
		Value     float64 `json:"value"`
		NaceCode  string  `json:"nace_code"`
	} `json:"values"`
}

func (h *apiHandler) submitValues(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeBadRequest(w, eris.New("invalid request body"))
		return
	}
	if len(req.Values) == 0 {
		writeBadRequest(w, eris.New("values are required"))
		return
	}

	values := make([]model.KpiValue, len(req.Values))
	for i, v := range req.Values {
		p, err := model.ParsePeriod(v.Period)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		values[i] = model.KpiValue{KpiID: v.KpiID, FactoryID: v.FactoryID, Period: p, Value: v.Value, NaceCode: v.NaceCode}
	}

	n, err := h.svc.SubmitValues(r.Context(), requestScope(r), values)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"upserted": n})
}

func optionalPeriod(s string) (model.Period, error) {
	if s == "" {
		return "", nil
	}
	return model.ParsePeriod(s)
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, eris.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// writeError maps engine errors to HTTP statuses. Anything that is not a
// client-input error is logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case eris.Is(err, engine.ErrOutOfScope):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case eris.Is(err, engine.ErrMissingSelector), eris.Is(err, engine.ErrInvalidInput):
		writeBadRequest(w, err)
	default:
		zap.L().Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
