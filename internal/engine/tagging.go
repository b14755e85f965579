package engine

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/akerimB/kpi-manager/internal/tagging"
)

// TagKpis runs the tagger over every KPI description and persists the
// theme sets that changed. It returns the number of KPIs updated.
func (e *Engine) TagKpis(ctx context.Context, tagger *tagging.Tagger) (int, error) {
	kpis, err := e.store.ListKpis(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "engine: load kpis")
	}

	changed := make(map[int64][]string)
	for _, k := range kpis {
		tags := tagger.Tags(k.Description)
		current := slices.Clone(k.Themes)
		slices.Sort(current)
		if !slices.Equal(current, tags) {
			changed[k.ID] = tags
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}
	if err := e.store.UpdateKpiThemes(ctx, changed); err != nil {
		return 0, eris.Wrap(err, "engine: persist kpi themes")
	}
	e.log.Info("kpis tagged", zap.Int("kpis", len(kpis)), zap.Int("updated", len(changed)))
	return len(changed), nil
}
