package forecast

import (
	"encoding/json"
	"fmt"

	"demand-forecast/internal/chart"
	"demand-forecast/internal/model"
)

// Renderer writes a series to the output text and draws it on a canvas.
type Renderer struct {
	Output   TextSink
	Board    *chart.Board
	CanvasID string
}

func NewRenderer(output TextSink, board *chart.Board) *Renderer {
	return &Renderer{Output: output, Board: board, CanvasID: CanvasID}
}

// Render sets the output text to the indented series and replaces the chart.
// Nothing is written if raw cannot be formatted.
func (r *Renderer) Render(points []model.PredictionPoint, raw json.RawMessage) (string, *chart.Chart, error) {
	text, err := FormatSeries(raw)
	if err != nil {
		return "", nil, err
	}
	r.Output.SetText(text)

	if r.Board == nil {
		return text, nil, nil
	}
	return text, r.Board.Render(r.CanvasID, chart.Build(points)), nil
}

// FormatSeries re-encodes the series with two-space indentation in the
// canonical form a browser prints: numbers normalised, escapes resolved,
// duplicate keys collapsed to the last value.
func FormatSeries(raw json.RawMessage) (string, error) {
	text, err := stringify(raw)
	if err != nil {
		return "", fmt.Errorf("format series: %w", err)
	}
	return text, nil
}
