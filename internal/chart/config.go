package chart

import (
	"encoding/json"

	"demand-forecast/internal/model"
)

const (
	SeriesLabel = "Predicted Demand"
	SeriesColor = "green"
	XAxisTitle  = "Hour"
	YAxisTitle  = "Predicted Demand"
	PlotTitle   = "Electricity Future Predictions"
)

// Config mirrors the Chart.js configuration object for a line chart.
type Config struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

type Data struct {
	Labels   []json.RawMessage `json:"labels"`
	Datasets []Dataset         `json:"datasets"`
}

type Dataset struct {
	Label       string     `json:"label"`
	Data        []*float64 `json:"data"`
	BorderColor string     `json:"borderColor"`
	Fill        bool       `json:"fill"`
}

type Options struct {
	Responsive bool    `json:"responsive"`
	Plugins    Plugins `json:"plugins"`
	Scales     Scales  `json:"scales"`
}

type Plugins struct {
	Title  Title  `json:"title"`
	Legend Legend `json:"legend"`
}

type Legend struct {
	Display bool `json:"display"`
}

type Scales struct {
	X Axis `json:"x"`
	Y Axis `json:"y"`
}

type Axis struct {
	Title Title `json:"title"`
}

type Title struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

// Build maps points to labels (hour) and values (pred), keeping input order.
// A missing pred becomes null so the line shows a gap.
func Build(points []model.PredictionPoint) Config {
	labels := make([]json.RawMessage, len(points))
	values := make([]*float64, len(points))
	for i, p := range points {
		labels[i] = p.Hour
		if len(labels[i]) == 0 {
			labels[i] = json.RawMessage("null")
		}
		values[i] = p.Pred
	}

	return Config{
		Type: "line",
		Data: Data{
			Labels: labels,
			Datasets: []Dataset{{
				Label:       SeriesLabel,
				Data:        values,
				BorderColor: SeriesColor,
				Fill:        false,
			}},
		},
		Options: Options{
			Responsive: true,
			Plugins: Plugins{
				Title:  Title{Display: true, Text: PlotTitle},
				Legend: Legend{Display: true},
			},
			Scales: Scales{
				X: Axis{Title: Title{Display: true, Text: XAxisTitle}},
				Y: Axis{Title: Title{Display: true, Text: YAxisTitle}},
			},
		},
	}
}
