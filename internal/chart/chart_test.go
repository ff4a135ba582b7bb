package chart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demand-forecast/internal/model"
)

func demand(v float64) *float64 { return &v }

func TestBuild(t *testing.T) {
	t.Parallel()

	points := []model.PredictionPoint{
		{Hour: json.RawMessage(`3`), Pred: demand(10)},
		{Hour: json.RawMessage(`1`), Pred: demand(42.5)},
		{Hour: json.RawMessage(`"1"`), Pred: demand(42.5)},
		{Pred: demand(7)},
		{Hour: json.RawMessage(`4`)},
	}

	cfg := Build(points)

	assert.Equal(t, "line", cfg.Type)
	assert.Equal(t, []json.RawMessage{
		json.RawMessage(`3`),
		json.RawMessage(`1`),
		json.RawMessage(`"1"`),
		json.RawMessage(`null`),
		json.RawMessage(`4`),
	}, cfg.Data.Labels)
	require.Len(t, cfg.Data.Datasets, 1)
	assert.Equal(t, []*float64{demand(10), demand(42.5), demand(42.5), demand(7), nil}, cfg.Data.Datasets[0].Data)
	assert.Equal(t, "Predicted Demand", cfg.Data.Datasets[0].Label)
	assert.Equal(t, "green", cfg.Data.Datasets[0].BorderColor)
	assert.False(t, cfg.Data.Datasets[0].Fill)
	assert.True(t, cfg.Options.Responsive)
	assert.Equal(t, "Hour", cfg.Options.Scales.X.Title.Text)
	assert.Equal(t, "Predicted Demand", cfg.Options.Scales.Y.Title.Text)
	assert.Equal(t, "Electricity Future Predictions", cfg.Options.Plugins.Title.Text)
	assert.True(t, cfg.Options.Plugins.Legend.Display)
}

func TestBuildChartJSShape(t *testing.T) {
	t.Parallel()

	cfg := Build([]model.PredictionPoint{
		{Hour: json.RawMessage(`1`), Pred: demand(42.5)},
		{Hour: json.RawMessage(`2`)},
	})
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "line",
		"data": {
			"labels": [1, 2],
			"datasets": [{"label": "Predicted Demand", "data": [42.5, null], "borderColor": "green", "fill": false}]
		},
		"options": {
			"responsive": true,
			"plugins": {
				"title": {"display": true, "text": "Electricity Future Predictions"},
				"legend": {"display": true}
			},
			"scales": {
				"x": {"title": {"display": true, "text": "Hour"}},
				"y": {"title": {"display": true, "text": "Predicted Demand"}}
			}
		}
	}`, string(data))
}

func TestBuildEmpty(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Build(nil))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"labels":[]`)
	assert.Contains(t, string(data), `"data":[]`)
}

func TestBoardReplacesChartOnSameCanvas(t *testing.T) {
	t.Parallel()

	b := NewBoard()
	first := b.Render("graphCanvas", Build(nil))
	second := b.Render("graphCanvas", Build(nil))
	b.Render("otherCanvas", Build(nil))

	assert.NotEqual(t, first.ID, second.ID)
	current, ok := b.Current("graphCanvas")
	require.True(t, ok)
	assert.Equal(t, second.ID, current.ID)
	assert.Equal(t, 2, b.Live())
	assert.Equal(t, 1, b.Destroyed())

	assert.True(t, b.Destroy("graphCanvas"))
	assert.False(t, b.Destroy("graphCanvas"))
	_, ok = b.Current("graphCanvas")
	assert.False(t, ok)
	assert.Equal(t, 1, b.Live())
	assert.Equal(t, 2, b.Destroyed())
}
