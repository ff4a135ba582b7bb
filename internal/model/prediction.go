package model

import "encoding/json"

// PredictRequest is the body POSTed to the prediction service. Values are taken
// from the form verbatim.
type PredictRequest struct {
	StartDate string `json:"start_date" form:"start_date"`
	StartTime string `json:"start_time" form:"start_time"`
	EndDate   string `json:"end_date" form:"end_date"`
	EndTime   string `json:"end_time" form:"end_time"`
}

// PredictionPoint is the predicted demand for one hour.
// Hour stays raw so numeric and string labels both round-trip untouched.
// Pred is nil when the service sent null or omitted it.
type PredictionPoint struct {
	Hour json.RawMessage `json:"hour"`
	Pred *float64        `json:"pred"`
}

// Envelope is the success body. Result holds the series as a JSON string.
type Envelope struct {
	Result *string `json:"result"`
}

// ErrorBody is what the service returns alongside a 4xx.
type ErrorBody struct {
	Error string `json:"error"`
}
