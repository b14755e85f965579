package store

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/akerimB/kpi-manager/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS strategic_goals (
	id    TEXT PRIMARY KEY,
	code  TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS strategic_targets (
	id                TEXT PRIMARY KEY,
	code              TEXT NOT NULL,
	title             TEXT NOT NULL DEFAULT '',
	strategic_goal_id TEXT NOT NULL REFERENCES strategic_goals(id),
	goal_weight       REAL,
	importance        REAL
);

CREATE TABLE IF NOT EXISTS kpis (
	id                  INTEGER PRIMARY KEY,
	number              INTEGER NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	unit                TEXT NOT NULL DEFAULT '',
	target_value        REAL,
	themes              TEXT NOT NULL DEFAULT '',
	sh_weight           REAL,
	importance          REAL,
	strategic_target_id TEXT NOT NULL REFERENCES strategic_targets(id)
);

CREATE TABLE IF NOT EXISTS factories (
	id       TEXT PRIMARY KEY,
	code     TEXT NOT NULL,
	name     TEXT NOT NULL DEFAULT '',
	region   TEXT NOT NULL DEFAULT '',
	province TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS factory_sector_shares (
	factory_id TEXT NOT NULL REFERENCES factories(id),
	sector     TEXT NOT NULL,
	share      REAL NOT NULL,
	PRIMARY KEY (factory_id, sector)
);

CREATE TABLE IF NOT EXISTS factory_weight_overrides (
	factory_id          TEXT NOT NULL REFERENCES factories(id),
	strategic_target_id TEXT NOT NULL REFERENCES strategic_targets(id),
	weight              REAL NOT NULL,
	PRIMARY KEY (factory_id, strategic_target_id)
);

CREATE TABLE IF NOT EXISTS kpi_values (
	id         TEXT PRIMARY KEY,
	kpi_id     INTEGER NOT NULL REFERENCES kpis(id),
	factory_id TEXT NOT NULL REFERENCES factories(id),
	period     TEXT NOT NULL,
	value      REAL NOT NULL,
	nace_code  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (kpi_id, factory_id, period)
);

CREATE TABLE IF NOT EXISTS actions (
	id                  TEXT PRIMARY KEY,
	code                TEXT NOT NULL,
	title               TEXT NOT NULL DEFAULT '',
	strategic_target_id TEXT NOT NULL REFERENCES strategic_targets(id),
	factory_id          TEXT NOT NULL REFERENCES factories(id),
	completion_percent  REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS action_kpis (
	action_id    TEXT NOT NULL REFERENCES actions(id),
	kpi_id       INTEGER NOT NULL REFERENCES kpis(id),
	impact_score REAL NOT NULL DEFAULT 0,
	impact_level TEXT NOT NULL DEFAULT 'medium',
	PRIMARY KEY (action_id, kpi_id)
);

CREATE TABLE IF NOT EXISTS action_budgets (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	action_id    TEXT NOT NULL REFERENCES actions(id),
	period       TEXT NOT NULL DEFAULT '',
	planned_cost REAL NOT NULL DEFAULT 0,
	actual_cost  REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS action_steps (
	id           TEXT PRIMARY KEY,
	action_id    TEXT NOT NULL REFERENCES actions(id),
	title        TEXT NOT NULL DEFAULT '',
	period       TEXT NOT NULL DEFAULT '',
	planned_cost REAL,
	actual_cost  REAL
);

CREATE TABLE IF NOT EXISTS evidence (
	id             TEXT PRIMARY KEY,
	factory_id     TEXT NOT NULL REFERENCES factories(id),
	period         TEXT NOT NULL,
	nace_code      TEXT NOT NULL DEFAULT '',
	employee_count REAL NOT NULL DEFAULT 0,
	revenue        REAL NOT NULL DEFAULT 0,
	exporter       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_kpi_values_period ON kpi_values(period);
CREATE INDEX IF NOT EXISTS idx_kpi_values_factory ON kpi_values(factory_id);
CREATE INDEX IF NOT EXISTS idx_evidence_period ON evidence(period);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// in renders "col IN (?,?,...)" and appends the args.
func in[T any](col string, vals []T, args []any) (string, []any) {
	marks := make([]string, len(vals))
	for i, v := range vals {
		marks[i] = "?"
		args = append(args, v)
	}
	return col + " IN (" + strings.Join(marks, ",") + ")", args
}

func whereClause(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func (s *SQLiteStore) ListStrategicGoals(ctx context.Context) ([]model.StrategicGoal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, title FROM strategic_goals ORDER BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list strategic goals")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.StrategicGoal{}
	for rows.Next() {
		var g model.StrategicGoal
		if err := rows.Scan(&g.ID, &g.Code, &g.Title); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan strategic goal")
		}
		out = append(out, g)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate strategic goals")
}

func (s *SQLiteStore) ListStrategicTargets(ctx context.Context) ([]model.StrategicTarget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, title, strategic_goal_id, goal_weight, importance FROM strategic_targets ORDER BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list strategic targets")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.StrategicTarget{}
	for rows.Next() {
		var (
			t          model.StrategicTarget
			weight, im sql.NullFloat64
		)
		if err := rows.Scan(&t.ID, &t.Code, &t.Title, &t.StrategicGoalID, &weight, &im); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan strategic target")
		}
		t.GoalWeight, t.Importance = nullFloat(weight), nullFloat(im)
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate strategic targets")
}

func (s *SQLiteStore) ListKpis(ctx context.Context) ([]model.KPI, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, number, description, unit, target_value, themes, sh_weight, importance, strategic_target_id
		 FROM kpis ORDER BY number`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list kpis")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.KPI{}
	for rows.Next() {
		var (
			k                  model.KPI
			themes             string
			target, weight, im sql.NullFloat64
		)
		if err := rows.Scan(&k.ID, &k.Number, &k.Description, &k.Unit, &target,
			&themes, &weight, &im, &k.StrategicTargetID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan kpi")
		}
		k.TargetValue, k.SHWeight, k.Importance = nullFloat(target), nullFloat(weight), nullFloat(im)
		k.Themes = model.SplitThemes(themes)
		out = append(out, k)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate kpis")
}

func (s *SQLiteStore) ListFactories(ctx context.Context) ([]model.Factory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, name, region, province FROM factories ORDER BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list factories")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Factory{}
	for rows.Next() {
		var f model.Factory
		if err := rows.Scan(&f.ID, &f.Code, &f.Name, &f.Region, &f.Province); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan factory")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate factories")
}

func (s *SQLiteStore) ListSectorShares(ctx context.Context, factoryID string) ([]model.SectorShare, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT factory_id, sector, share FROM factory_sector_shares WHERE factory_id = ? ORDER BY sector`, factoryID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list sector shares %s", factoryID)
	}
	defer rows.Close() //nolint:errcheck

	out := []model.SectorShare{}
	for rows.Next() {
		var sh model.SectorShare
		if err := rows.Scan(&sh.FactoryID, &sh.Sector, &sh.Share); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sector share")
		}
		out = append(out, sh)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate sector shares")
}

func (s *SQLiteStore) ListWeightOverrides(ctx context.Context, factoryID string) ([]model.WeightOverride, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT factory_id, strategic_target_id, weight FROM factory_weight_overrides WHERE factory_id = ?`, factoryID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list weight overrides %s", factoryID)
	}
	defer rows.Close() //nolint:errcheck

	out := []model.WeightOverride{}
	for rows.Next() {
		var w model.WeightOverride
		if err := rows.Scan(&w.FactoryID, &w.StrategicTargetID, &w.Weight); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan weight override")
		}
		out = append(out, w)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate weight overrides")
}

func (s *SQLiteStore) ListKpiValues(ctx context.Context, f ValueFilter) ([]model.KpiValue, error) {
	var (
		clauses []string
		args    []any
		c       string
	)
	if len(f.Periods) > 0 {
		c, args = in("period", periodStrings(f.Periods), args)
		clauses = append(clauses, c)
	}
	if len(f.FactoryIDs) > 0 {
		c, args = in("factory_id", f.FactoryIDs, args)
		clauses = append(clauses, c)
	}
	if len(f.KpiIDs) > 0 {
		c, args = in("kpi_id", f.KpiIDs, args)
		clauses = append(clauses, c)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kpi_id, factory_id, period, value, nace_code, created_at, updated_at FROM kpi_values`+
			whereClause(clauses)+` ORDER BY period, factory_id, kpi_id`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list kpi values")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.KpiValue{}
	for rows.Next() {
		var (
			v      model.KpiValue
			period string
		)
		if err := rows.Scan(&v.ID, &v.KpiID, &v.FactoryID, &period, &v.Value, &v.NaceCode,
			&v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan kpi value")
		}
		v.Period = model.Period(period)
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate kpi values")
}

func (s *SQLiteStore) ListActions(ctx context.Context, f ActionFilter) ([]model.Action, error) {
	var (
		clauses []string
		args    []any
	)
	if len(f.FactoryIDs) > 0 {
		var c string
		c, args = in("a.factory_id", f.FactoryIDs, args)
		clauses = append(clauses, c)
	}
	filter := whereClause(clauses)

	actions := []model.Action{}
	index := make(map[string]int)
	err := s.each(ctx,
		`SELECT a.id, a.code, a.title, a.strategic_target_id, a.factory_id, a.completion_percent
		 FROM actions a`+filter+` ORDER BY a.code`, args,
		func(rows *sql.Rows) error {
			var a model.Action
			if err := rows.Scan(&a.ID, &a.Code, &a.Title, &a.StrategicTargetID, &a.FactoryID, &a.CompletionPercent); err != nil {
				return err
			}
			index[a.ID] = len(actions)
			actions = append(actions, a)
			return nil
		})
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list actions")
	}
	if len(actions) == 0 {
		return actions, nil
	}

	err = s.each(ctx,
		`SELECT k.action_id, k.kpi_id, k.impact_score, k.impact_level
		 FROM action_kpis k JOIN actions a ON a.id = k.action_id`+filter+` ORDER BY k.action_id, k.kpi_id`, args,
		func(rows *sql.Rows) error {
			var (
				l     model.ActionKpi
				level string
			)
			if err := rows.Scan(&l.ActionID, &l.KpiID, &l.ImpactScore, &level); err != nil {
				return err
			}
			l.ImpactLevel = model.ImpactLevel(level)
			if i, ok := index[l.ActionID]; ok {
				actions[i].Kpis = append(actions[i].Kpis, l)
			}
			return nil
		})
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list action kpis")
	}

	err = s.each(ctx,
		`SELECT b.action_id, b.period, b.planned_cost, b.actual_cost
		 FROM action_budgets b JOIN actions a ON a.id = b.action_id`+filter+` ORDER BY b.action_id, b.id`, args,
		func(rows *sql.Rows) error {
			var (
				b      model.ActionBudget
				period string
			)
			if err := rows.Scan(&b.ActionID, &period, &b.PlannedCost, &b.ActualCost); err != nil {
				return err
			}
			b.Period = model.Period(period)
			if i, ok := index[b.ActionID]; ok {
				actions[i].Budgets = append(actions[i].Budgets, b)
			}
			return nil
		})
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list action budgets")
	}

	err = s.each(ctx,
		`SELECT st.id, st.action_id, st.title, st.period, st.planned_cost, st.actual_cost
		 FROM action_steps st JOIN actions a ON a.id = st.action_id`+filter+` ORDER BY st.action_id, st.id`, args,
		func(rows *sql.Rows) error {
			var (
				st              model.ActionStep
				period          string
				planned, actual sql.NullFloat64
			)
			if err := rows.Scan(&st.ID, &st.ActionID, &st.Title, &period, &planned, &actual); err != nil {
				return err
			}
			st.Period = model.Period(period)
			st.PlannedCost, st.ActualCost = nullFloat(planned), nullFloat(actual)
			if i, ok := index[st.ActionID]; ok {
				actions[i].Steps = append(actions[i].Steps, st)
			}
			return nil
		})
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list action steps")
	}
	return actions, nil
}

// each runs query and calls fn per row.
func (s *SQLiteStore) each(ctx context.Context, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) ListEvidence(ctx context.Context, f EvidenceFilter) ([]model.Evidence, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Period != "" {
		clauses = append(clauses, "period = ?")
		args = append(args, f.Period.String())
	}
	if len(f.FactoryIDs) > 0 {
		var c string
		c, args = in("factory_id", f.FactoryIDs, args)
		clauses = append(clauses, c)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, factory_id, period, nace_code, employee_count, revenue, exporter FROM evidence`+
			whereClause(clauses)+` ORDER BY id`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evidence")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Evidence{}
	for rows.Next() {
		var (
			e      model.Evidence
			period string
		)
		if err := rows.Scan(&e.ID, &e.FactoryID, &period, &e.NaceCode, &e.EmployeeCount, &e.Revenue, &e.Exporter); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evidence")
		}
		e.Period = model.Period(period)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate evidence")
}

// UpsertKpiValues writes values keyed on (kpi, factory, period); a
// resubmission replaces the stored value and keeps the original id.
func (s *SQLiteStore) UpsertKpiValues(ctx context.Context, values []model.KpiValue) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert kpi values: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	var n int64
	for _, v := range values {
		id := v.ID
		if id == "" {
			id = uuid.NewString()
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO kpi_values (id, kpi_id, factory_id, period, value, nace_code, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (kpi_id, factory_id, period) DO UPDATE SET
			   value = excluded.value, nace_code = excluded.nace_code, updated_at = excluded.updated_at`,
			id, v.KpiID, v.FactoryID, v.Period.String(), v.Value, v.NaceCode, now, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert kpi value %d/%s/%s", v.KpiID, v.FactoryID, v.Period)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert kpi values: commit")
	}
	return n, nil
}

func (s *SQLiteStore) UpdateKpiWeights(ctx context.Context, weights map[int64]float64) error {
	ids := make([]int64, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return s.execTx(ctx, "update kpi weights", len(ids), func(tx *sql.Tx, i int) error {
		_, err := tx.ExecContext(ctx, `UPDATE kpis SET sh_weight = ? WHERE id = ?`, weights[ids[i]], ids[i])
		return err
	})
}

func (s *SQLiteStore) UpdateTargetWeights(ctx context.Context, weights map[string]float64) error {
	ids := make([]string, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return s.execTx(ctx, "update target weights", len(ids), func(tx *sql.Tx, i int) error {
		_, err := tx.ExecContext(ctx, `UPDATE strategic_targets SET goal_weight = ? WHERE id = ?`, weights[ids[i]], ids[i])
		return err
	})
}

func (s *SQLiteStore) UpdateKpiThemes(ctx context.Context, themes map[int64][]string) error {
	ids := make([]int64, 0, len(themes))
	for id := range themes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return s.execTx(ctx, "update kpi themes", len(ids), func(tx *sql.Tx, i int) error {
		_, err := tx.ExecContext(ctx, `UPDATE kpis SET themes = ? WHERE id = ?`, model.JoinThemes(themes[ids[i]]), ids[i])
		return err
	})
}

// execTx calls fn n times inside one transaction.
func (s *SQLiteStore) execTx(ctx context.Context, op string, n int, fn func(tx *sql.Tx, i int) error) error {
	if n == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s: begin tx", op)
	}
	defer tx.Rollback() //nolint:errcheck

	for i := 0; i < n; i++ {
		if err := fn(tx, i); err != nil {
			return eris.Wrapf(err, "sqlite: %s", op)
		}
	}
	return eris.Wrapf(tx.Commit(), "sqlite: %s: commit", op)
}
