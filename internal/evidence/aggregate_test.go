package evidence

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akerimB/kpi-manager/internal/model"
	"github.com/akerimB/kpi-manager/internal/sector"
)

func records(code string, n int, exporterEvery int) []model.Evidence {
	out := make([]model.Evidence, n)
	for i := range out {
		out[i] = model.Evidence{
			FactoryID:     fmt.Sprintf("f%d", i%3),
			NaceCode:      code,
			EmployeeCount: 10,
			Revenue:       1000,
			Exporter:      exporterEvery > 0 && i%exporterEvery == 0,
		}
	}
	return out
}

func TestEffectiveMinN(t *testing.T) {
	assert.Equal(t, DefaultMinN, EffectiveMinN(0))
	assert.Equal(t, 1, EffectiveMinN(-4))
	assert.Equal(t, 1, EffectiveMinN(1))
	assert.Equal(t, 12, EffectiveMinN(12))
}

func TestParseGroupBy(t *testing.T) {
	g, err := ParseGroupBy("")
	require.NoError(t, err)
	assert.Equal(t, GroupByNace2D, g)

	g, err = ParseGroupBy("SECTOR")
	require.NoError(t, err)
	assert.Equal(t, GroupBySector, g)

	_, err = ParseGroupBy("province")
	require.Error(t, err)
}

func TestAggregate_SuppressesSmallGroups(t *testing.T) {
	var in []model.Evidence
	in = append(in, records("25.11", 7, 2)...)
	in = append(in, records("10.51", 4, 0)...)
	in = append(in, records("", 5, 0)...)

	res := Aggregate(in, GroupByNace2D, 5)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, 1, res.Suppressed)

	assert.Equal(t, "25", res.Groups[0].Key)
	assert.Equal(t, 7, res.Groups[0].Count)
	assert.Equal(t, 70.0, res.Groups[0].Employees)
	assert.Equal(t, 7000.0, res.Groups[0].Revenue)
	assert.Equal(t, 4, res.Groups[0].ExporterCount)
	assert.Equal(t, 3, res.Groups[0].FirmCount)

	assert.Equal(t, "unknown", res.Groups[1].Key)

	total := 0
	for _, g := range res.Groups {
		assert.GreaterOrEqual(t, g.Count, 5)
		total += g.Count
	}
	assert.LessOrEqual(t, total, len(in))
}

func TestAggregate_BySector(t *testing.T) {
	var in []model.Evidence
	in = append(in, records("24.10", 3, 0)...)
	in = append(in, records("25.11", 3, 0)...)
	in = append(in, records("13.10", 2, 0)...)

	res := Aggregate(in, GroupBySector, 0)
	assert.Equal(t, DefaultMinN, res.MinN)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, sector.Metals, res.Groups[0].Key)
	assert.Equal(t, 6, res.Groups[0].Count)
}

func TestAggregate_OrderingTiesByKey(t *testing.T) {
	var in []model.Evidence
	in = append(in, records("28.11", 2, 0)...)
	in = append(in, records("20.11", 2, 0)...)
	in = append(in, records("10.11", 3, 0)...)

	res := Aggregate(in, GroupByNace2D, 1)
	require.Len(t, res.Groups, 3)
	assert.Equal(t, []string{"10", "20", "28"}, []string{res.Groups[0].Key, res.Groups[1].Key, res.Groups[2].Key})
}

func TestAggregate_Empty(t *testing.T) {
	res := Aggregate(nil, GroupByNace2D, 5)
	assert.NotNil(t, res.Groups)
	assert.Empty(t, res.Groups)
}
