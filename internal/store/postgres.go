package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rotisserie/eris"

	"github.com/akerimB/kpi-manager/internal/db"
	"github.com/akerimB/kpi-manager/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool db.Pool
	raw  *pgxpool.Pool // nil when pool is a mock
}

// NewPostgres connects to url and returns a store.
func NewPostgres(ctx context.Context, url string, cfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.NewPool(ctx, url, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, raw: pool}, nil
}

// Migrate applies the embedded schema migrations.
func (s *PostgresStore) Migrate(_ context.Context) error {
	if s.raw == nil {
		return eris.New("postgres: migrate needs a live pool")
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return eris.Wrap(err, "postgres: migration source")
	}
	sqlDB := stdlib.OpenDBFromPool(s.raw)
	defer sqlDB.Close() //nolint:errcheck

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return eris.Wrap(err, "postgres: migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return eris.Wrap(err, "postgres: migrator")
	}
	defer m.Close() //nolint:errcheck
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return eris.Wrap(err, "postgres: migrate up")
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.raw != nil {
		s.raw.Close()
	}
	return nil
}

func (s *PostgresStore) ListStrategicGoals(ctx context.Context) ([]model.StrategicGoal, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, code, title FROM strategic_goals ORDER BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list strategic goals")
	}
	defer rows.Close()

	out := []model.StrategicGoal{}
	for rows.Next() {
		var g model.StrategicGoal
		if err := rows.Scan(&g.ID, &g.Code, &g.Title); err != nil {
			return nil, eris.Wrap(err, "postgres: scan strategic goal")
		}
		out = append(out, g)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate strategic goals")
}

func (s *PostgresStore) ListStrategicTargets(ctx context.Context) ([]model.StrategicTarget, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, code, title, strategic_goal_id, goal_weight, importance FROM strategic_targets ORDER BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list strategic targets")
	}
	defer rows.Close()

	out := []model.StrategicTarget{}
	for rows.Next() {
		var t model.StrategicTarget
		if err := rows.Scan(&t.ID, &t.Code, &t.Title, &t.StrategicGoalID, &t.GoalWeight, &t.Importance); err != nil {
			return nil, eris.Wrap(err, "postgres: scan strategic target")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate strategic targets")
}

func (s *PostgresStore) ListKpis(ctx context.Context) ([]model.KPI, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, number, description, unit, target_value, themes, sh_weight, importance, strategic_target_id
		 FROM kpis ORDER BY number`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list kpis")
	}
	defer rows.Close()

	out := []model.KPI{}
	for rows.Next() {
		var (
			k      model.KPI
			themes string
		)
		if err := rows.Scan(&k.ID, &k.Number, &k.Description, &k.Unit, &k.TargetValue,
			&themes, &k.SHWeight, &k.Importance, &k.StrategicTargetID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan kpi")
		}
		k.Themes = model.SplitThemes(themes)
		out = append(out, k)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate kpis")
}

func (s *PostgresStore) ListFactories(ctx context.Context) ([]model.Factory, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, code, name, region, province FROM factories ORDER BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list factories")
	}
	defer rows.Close()

	out := []model.Factory{}
	for rows.Next() {
		var f model.Factory
		if err := rows.Scan(&f.ID, &f.Code, &f.Name, &f.Region, &f.Province); err != nil {
			return nil, eris.Wrap(err, "postgres: scan factory")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate factories")
}

func (s *PostgresStore) ListSectorShares(ctx context.Context, factoryID string) ([]model.SectorShare, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT factory_id, sector, share FROM factory_sector_shares WHERE factory_id = $1 ORDER BY sector`,
		factoryID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list sector shares %s", factoryID)
	}
	defer rows.Close()

	out := []model.SectorShare{}
	for rows.Next() {
		var sh model.SectorShare
		if err := rows.Scan(&sh.FactoryID, &sh.Sector, &sh.Share); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sector share")
		}
		out = append(out, sh)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate sector shares")
}

func (s *PostgresStore) ListWeightOverrides(ctx context.Context, factoryID string) ([]model.WeightOverride, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT factory_id, strategic_target_id, weight FROM factory_weight_overrides WHERE factory_id = $1`,
		factoryID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list weight overrides %s", factoryID)
	}
	defer rows.Close()

	out := []model.WeightOverride{}
	for rows.Next() {
		var w model.WeightOverride
		if err := rows.Scan(&w.FactoryID, &w.StrategicTargetID, &w.Weight); err != nil {
			return nil, eris.Wrap(err, "postgres: scan weight override")
		}
		out = append(out, w)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate weight overrides")
}

// where accumulates "col = ANY($n)" clauses for non-empty filters.
type where struct {
	clauses []string
	args    []any
}

func (w *where) any(col string, vals any, n int) {
	if n == 0 {
		return
	}
	w.args = append(w.args, vals)
	w.clauses = append(w.clauses, fmt.Sprintf("%s = ANY($%d)", col, len(w.args)))
}

func (w *where) eq(col string, val any) {
	w.args = append(w.args, val)
	w.clauses = append(w.clauses, fmt.Sprintf("%s = $%d", col, len(w.args)))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (s *PostgresStore) ListKpiValues(ctx context.Context, f ValueFilter) ([]model.KpiValue, error) {
	var w where
	w.any("period", periodStrings(f.Periods), len(f.Periods))
	w.any("factory_id", f.FactoryIDs, len(f.FactoryIDs))
	w.any("kpi_id", f.KpiIDs, len(f.KpiIDs))

	rows, err := s.pool.Query(ctx,
		`SELECT id, kpi_id, factory_id, period, value, nace_code, created_at, updated_at FROM kpi_values`+
			w.String()+` ORDER BY period, factory_id, kpi_id`,
		w.args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list kpi values")
	}
	defer rows.Close()

	out := []model.KpiValue{}
	for rows.Next() {
		var (
			v      model.KpiValue
			period string
		)
		if err := rows.Scan(&v.ID, &v.KpiID, &v.FactoryID, &period, &v.Value, &v.NaceCode,
			&v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan kpi value")
		}
		v.Period = model.Period(period)
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate kpi values")
}

func (s *PostgresStore) ListActions(ctx context.Context, f ActionFilter) ([]model.Action, error) {
	var w where
	w.any("a.factory_id", f.FactoryIDs, len(f.FactoryIDs))
	filter := w.String()

	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.code, a.title, a.strategic_target_id, a.factory_id, a.completion_percent
		 FROM actions a`+filter+` ORDER BY a.code`, w.args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list actions")
	}
	actions := []model.Action{}
	index := make(map[string]int)
	for rows.Next() {
		var a model.Action
		if err := rows.Scan(&a.ID, &a.Code, &a.Title, &a.StrategicTargetID, &a.FactoryID, &a.CompletionPercent); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "postgres: scan action")
		}
		index[a.ID] = len(actions)
		actions = append(actions, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate actions")
	}
	if len(actions) == 0 {
		return actions, nil
	}

	links, err := s.pool.Query(ctx,
		`SELECT k.action_id, k.kpi_id, k.impact_score, k.impact_level
		 FROM action_kpis k JOIN actions a ON a.id = k.action_id`+filter+` ORDER BY k.action_id, k.kpi_id`, w.args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list action kpis")
	}
	for links.Next() {
		var (
			l     model.ActionKpi
			level string
		)
		if err := links.Scan(&l.ActionID, &l.KpiID, &l.ImpactScore, &level); err != nil {
			links.Close()
			return nil, eris.Wrap(err, "postgres: scan action kpi")
		}
		l.ImpactLevel = model.ImpactLevel(level)
		if i, ok := index[l.ActionID]; ok {
			actions[i].Kpis = append(actions[i].Kpis, l)
		}
	}
	links.Close()
	if err := links.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate action kpis")
	}

	budgets, err := s.pool.Query(ctx,
		`SELECT b.action_id, b.period, b.planned_cost, b.actual_cost
		 FROM action_budgets b JOIN actions a ON a.id = b.action_id`+filter+` ORDER BY b.action_id, b.id`, w.args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list action budgets")
	}
	for budgets.Next() {
		var (
			b      model.ActionBudget
			period string
		)
		if err := budgets.Scan(&b.ActionID, &period, &b.PlannedCost, &b.ActualCost); err != nil {
			budgets.Close()
			return nil, eris.Wrap(err, "postgres: scan action budget")
		}
		b.Period = model.Period(period)
		if i, ok := index[b.ActionID]; ok {
			actions[i].Budgets = append(actions[i].Budgets, b)
		}
	}
	budgets.Close()
	if err := budgets.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate action budgets")
	}

	steps, err := s.pool.Query(ctx,
		`SELECT st.id, st.action_id, st.title, st.period, st.planned_cost, st.actual_cost
		 FROM action_steps st JOIN actions a ON a.id = st.action_id`+filter+` ORDER BY st.action_id, st.id`, w.args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list action steps")
	}
	defer steps.Close()
	for steps.Next() {
		var (
			st     model.ActionStep
			period string
		)
		if err := steps.Scan(&st.ID, &st.ActionID, &st.Title, &period, &st.PlannedCost, &st.ActualCost); err != nil {
			return nil, eris.Wrap(err, "postgres: scan action step")
		}
		st.Period = model.Period(period)
		if i, ok := index[st.ActionID]; ok {
			actions[i].Steps = append(actions[i].Steps, st)
		}
	}
	return actions, eris.Wrap(steps.Err(), "postgres: iterate action steps")
}

func (s *PostgresStore) ListEvidence(ctx context.Context, f EvidenceFilter) ([]model.Evidence, error) {
	var w where
	if f.Period != "" {
		w.eq("period", f.Period.String())
	}
	w.any("factory_id", f.FactoryIDs, len(f.FactoryIDs))

	rows, err := s.pool.Query(ctx,
		`SELECT id, factory_id, period, nace_code, employee_count, revenue, exporter FROM evidence`+
			w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evidence")
	}
	defer rows.Close()

	out := []model.Evidence{}
	for rows.Next() {
		var (
			e      model.Evidence
			period string
		)
		if err := rows.Scan(&e.ID, &e.FactoryID, &period, &e.NaceCode, &e.EmployeeCount, &e.Revenue, &e.Exporter); err != nil {
			return nil, eris.Wrap(err, "postgres: scan evidence")
		}
		e.Period = model.Period(period)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate evidence")
}

var kpiValueUpsert = db.UpsertConfig{
	Table:        "kpi_values",
	Columns:      []string{"id", "kpi_id", "factory_id", "period", "value", "nace_code", "created_at", "updated_at"},
	ConflictKeys: []string{"kpi_id", "factory_id", "period"},
	UpdateCols:   []string{"value", "nace_code", "updated_at"},
}

// UpsertKpiValues writes values keyed on (kpi, factory, period); a
// resubmission replaces the stored value.
func (s *PostgresStore) UpsertKpiValues(ctx context.Context, values []model.KpiValue) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, len(values))
	for i, v := range values {
		id := v.ID
		if id == "" {
			id = uuid.NewString()
		}
		rows[i] = []any{id, v.KpiID, v.FactoryID, v.Period.String(), v.Value, v.NaceCode, now, now}
	}
	n, err := db.BulkUpsert(ctx, s.pool, kpiValueUpsert, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert kpi values")
	}
	return n, nil
}

// stmt is one parameterized statement of a write transaction.
type stmt struct {
	sql  string
	args []any
}

func (s *PostgresStore) UpdateKpiWeights(ctx context.Context, weights map[int64]float64) error {
	ids := make([]int64, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	stmts := make([]stmt, len(ids))
	for i, id := range ids {
		stmts[i] = stmt{`UPDATE kpis SET sh_weight = $1 WHERE id = $2`, []any{weights[id], id}}
	}
	return s.execTx(ctx, stmts, "update kpi weights")
}

func (s *PostgresStore) UpdateTargetWeights(ctx context.Context, weights map[string]float64) error {
	ids := make([]string, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stmts := make([]stmt, len(ids))
	for i, id := range ids {
		stmts[i] = stmt{`UPDATE strategic_targets SET goal_weight = $1 WHERE id = $2`, []any{weights[id], id}}
	}
	return s.execTx(ctx, stmts, "update target weights")
}

func (s *PostgresStore) UpdateKpiThemes(ctx context.Context, themes map[int64][]string) error {
	ids := make([]int64, 0, len(themes))
	for id := range themes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	stmts := make([]stmt, len(ids))
	for i, id := range ids {
		stmts[i] = stmt{`UPDATE kpis SET themes = $1 WHERE id = $2`, []any{model.JoinThemes(themes[id]), id}}
	}
	return s.execTx(ctx, stmts, "update kpi themes")
}

// execTx runs stmts in one transaction. An empty list is a no-op.
func (s *PostgresStore) execTx(ctx context.Context, stmts []stmt, op string) error {
	if len(stmts) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "postgres: %s: begin tx", op)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, st := range stmts {
		if _, err := tx.Exec(ctx, st.sql, st.args...); err != nil {
			return eris.Wrapf(err, "postgres: %s", op)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "postgres: %s: commit", op)
	}
	committed = true
	return nil
}
