package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"demand-forecast/internal/model"
)

// DefaultBaseURL is where the prediction service listens by default.
const DefaultBaseURL = "http://localhost:5000"

const maxErrorBody = 64 << 10

// Predictor produces a prediction outcome for a request.
type Predictor interface {
	Predict(ctx context.Context, req model.PredictRequest) Outcome
}

// Client talks to the prediction service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// NewClient creates a client. A zero timeout leaves the transport defaults in place.
func NewClient(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

// Endpoint returns the full predict URL.
func (c *Client) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + "/predict"
}

// Predict sends exactly one POST and classifies the result. It never retries.
func (c *Client) Predict(ctx context.Context, req model.PredictRequest) Outcome {
	body, err := json.Marshal(req)
	if err != nil {
		return Outcome{Kind: KindTransportError, Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return Outcome{Kind: KindTransportError, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		c.Logger.Warnw("prediction request failed", "url", c.Endpoint(), "error", err)
		return Outcome{Kind: KindTransportError, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := readErrorDetail(resp.Body)
		c.Logger.Warnw("prediction service returned an error",
			"status", resp.StatusCode, "detail", detail, "elapsed", time.Since(start))
		return Outcome{
			Kind:       KindHTTPError,
			StatusCode: resp.StatusCode,
			Detail:     detail,
			Err:        fmt.Errorf("prediction service returned %s", resp.Status),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Kind: KindTransportError, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	points, raw, err := DecodeEnvelope(data)
	if err != nil {
		c.Logger.Warnw("prediction response could not be decoded", "error", err)
		return Outcome{Kind: KindDecodeError, StatusCode: resp.StatusCode, Err: err}
	}

	c.Logger.Debugw("prediction received", "points", len(points), "elapsed", time.Since(start))
	return Outcome{Kind: KindSuccess, Points: points, Raw: raw, StatusCode: resp.StatusCode}
}

// DecodeEnvelope unwraps {"result": "<json array>"} into points. raw is the
// nested array text, validated and trimmed.
func DecodeEnvelope(body []byte) ([]model.PredictionPoint, json.RawMessage, error) {
	var env model.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, &DecodeError{Stage: "decode envelope", Err: err}
	}
	if env.Result == nil {
		return nil, nil, &DecodeError{Stage: "decode envelope", Err: errors.New("missing result field")}
	}

	raw := bytes.TrimSpace([]byte(*env.Result))
	if len(raw) == 0 || raw[0] != '[' {
		var probe any
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, nil, &DecodeError{Stage: "decode result", Err: err}
		}
		return nil, nil, &DecodeError{Stage: "decode result", Err: errors.New("result is not an array")}
	}

	points, err := DecodeSeries(raw)
	if err != nil {
		return nil, nil, err
	}
	return points, json.RawMessage(raw), nil
}

// DecodeSeries decodes the nested array text into points.
func DecodeSeries(raw []byte) ([]model.PredictionPoint, error) {
	var points []model.PredictionPoint
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, &DecodeError{Stage: "decode result", Err: err}
	}
	if points == nil {
		points = []model.PredictionPoint{}
	}
	return points, nil
}

func readErrorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var eb model.ErrorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Error != "" {
		return eb.Error
	}
	return strings.TrimSpace(string(data))
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, req model.PredictRequest) Outcome

func (f PredictorFunc) Predict(ctx context.Context, req model.PredictRequest) Outcome {
	return f(ctx, req)
}
