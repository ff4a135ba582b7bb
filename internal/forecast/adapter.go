package forecast

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"demand-forecast/internal/chart"
	"demand-forecast/internal/client"
	"demand-forecast/internal/model"
)

// Result describes one invocation. Stale results were overtaken by a later
// invocation and left the page untouched.
type Result struct {
	Token   uint64
	Request model.PredictRequest
	Outcome client.Outcome
	Text    string
	Chart   *chart.Chart
	Stale   bool
}

// Adapter turns form state into a prediction call and routes the answer to
// the renderer or the output text.
type Adapter struct {
	Form      Form
	Output    TextSink
	Predictor client.Predictor
	Renderer  *Renderer
	Logger    *zap.SugaredLogger

	mu     sync.Mutex
	latest uint64
	cancel context.CancelFunc
}

func NewAdapter(form Form, output TextSink, predictor client.Predictor, renderer *Renderer, logger *zap.SugaredLogger) *Adapter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Adapter{
		Form:      form,
		Output:    output,
		Predictor: predictor,
		Renderer:  renderer,
		Logger:    logger,
	}
}

// Fetch reads the form and runs one prediction.
func (a *Adapter) Fetch(ctx context.Context) Result {
	return a.run(ctx, func() model.PredictRequest {
		return ReadRequest(a.Form)
	})
}

// Submit fills the form with req and runs one prediction. The form must be a
// Filler.
func (a *Adapter) Submit(ctx context.Context, req model.PredictRequest) Result {
	return a.run(ctx, func() model.PredictRequest {
		if f, ok := a.Form.(Filler); ok {
			f.Fill(req)
			return ReadRequest(f)
		}
		return req
	})
}

func (a *Adapter) run(parent context.Context, prepare func() model.PredictRequest) Result {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.latest++
	token := a.latest
	a.cancel = cancel
	req := prepare()
	a.mu.Unlock()

	out := a.Predictor.Predict(ctx, req)

	a.mu.Lock()
	defer a.mu.Unlock()

	if token != a.latest {
		a.Logger.Debugw("discarding superseded prediction", "token", token, "latest", a.latest, "kind", out.Kind)
		return Result{Token: token, Request: req, Outcome: out, Stale: true}
	}
	a.cancel = nil

	res := Result{Token: token, Request: req}
	res.Text, res.Chart, res.Outcome = a.apply(out)
	return res
}

func (a *Adapter) apply(out client.Outcome) (string, *chart.Chart, client.Outcome) {
	if out.OK() {
		text, c, err := a.Renderer.Render(out.Points, out.Raw)
		if err == nil {
			return text, c, out
		}
		out = client.Outcome{
			Kind:       client.KindDecodeError,
			StatusCode: out.StatusCode,
			Err:        &client.DecodeError{Stage: "format result", Err: err},
		}
	}

	text := out.ErrorText()
	a.Output.SetText(text)
	a.Logger.Infow("prediction failed", "kind", out.Kind, "status", out.StatusCode, "detail", out.Detail, "message", out.Message())
	return text, nil, out
}
