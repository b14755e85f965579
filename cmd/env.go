package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/akerimB/kpi-manager/internal/alerting"
	"github.com/akerimB/kpi-manager/internal/db"
	"github.com/akerimB/kpi-manager/internal/engine"
	"github.com/akerimB/kpi-manager/internal/resilience"
	"github.com/akerimB/kpi-manager/internal/store"
)

// engineEnv holds the store and the engine built over it.
type engineEnv struct {
	Store  store.Store
	Engine *engine.Engine
}

// Close releases the store.
func (ee *engineEnv) Close() {
	if ee.Store != nil {
		_ = ee.Store.Close()
	}
}

// initStore opens the configured backend and wraps its reads with retry.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, db.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	retry := resilience.FromConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs)
	return store.WithRetry(st, cfg.Store.Driver, retry), nil
}

// newAlerter compiles the configured alert rules.
func newAlerter() (*alerting.Alerter, error) {
	rules := make([]alerting.RuleConfig, len(cfg.Alerting.Rules))
	for i, r := range cfg.Alerting.Rules {
		rules[i] = alerting.RuleConfig{Name: r.Name, Condition: r.Condition, Severity: r.Severity}
	}
	return alerting.NewAlerter(rules)
}

// initEngine validates config, opens and migrates the store, and builds
// the engine. Callers should defer env.Close().
func initEngine(ctx context.Context) (*engineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	alerter, err := newAlerter()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	eng := engine.New(st, engine.Options{
		FloorNegative: cfg.Scoring.FloorNegative,
		MoversTopN:    cfg.Scoring.MoversTopN,
		EvidenceMinN:  cfg.Evidence.MinN,
		Alerter:       alerter,
	})
	zap.L().Debug("engine ready",
		zap.String("driver", cfg.Store.Driver),
		zap.Int("alert_rules", len(alerter.Rules())),
	)
	return &engineEnv{Store: st, Engine: eng}, nil
}
