package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"demand-forecast/internal/chart"
	"demand-forecast/internal/client"
	"demand-forecast/internal/forecast"
	"demand-forecast/internal/model"
	"demand-forecast/internal/store"
)

const (
	defaultSessionTTL  = 30 * time.Minute
	defaultMaxInFlight = 8
)

// Recorder persists applied invocations.
type Recorder interface {
	Record(ctx context.Context, e *store.Entry) error
}

// View is what a dashboard shows after an invocation.
type View struct {
	SessionID  string       `json:"session_id"`
	Token      uint64       `json:"token,omitempty"`
	Kind       string       `json:"kind,omitempty"`
	OutputText string       `json:"output_text"`
	Chart      *chart.Chart `json:"chart,omitempty"`
	Stale      bool         `json:"stale,omitempty"`
	HistoryID  string       `json:"history_id,omitempty"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

// Dashboard is one user's page: inputs, output text and canvas.
type Dashboard struct {
	ID      string
	Panel   *forecast.Panel
	Board   *chart.Board
	Adapter *forecast.Adapter

	lastKind  string
	expiresAt time.Time
}

// Sessions tracks dashboards by ID and drops idle ones after the TTL.
type Sessions struct {
	mu         sync.Mutex
	dashboards map[string]*Dashboard

	predictor client.Predictor
	recorder  Recorder
	ttl       time.Duration
	sem       chan struct{}
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewSessions creates a registry. recorder may be nil.
func NewSessions(predictor client.Predictor, recorder Recorder, ttl time.Duration, logger *zap.SugaredLogger) *Sessions {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Sessions{
		dashboards: make(map[string]*Dashboard),
		recorder:   recorder,
		ttl:        ttl,
		sem:        make(chan struct{}, defaultMaxInFlight),
		logger:     logger,
		now:        time.Now,
	}
	s.predictor = client.PredictorFunc(s.limited(predictor))
	return s
}

// limited caps concurrent upstream calls across all dashboards.
func (s *Sessions) limited(next client.Predictor) func(context.Context, model.PredictRequest) client.Outcome {
	return func(ctx context.Context, req model.PredictRequest) client.Outcome {
		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return client.Outcome{Kind: client.KindTransportError, Err: ctx.Err()}
		}
		defer func() { <-s.sem }()
		return next.Predict(ctx, req)
	}
}

// Open returns the dashboard for id, creating a fresh one when id is empty,
// malformed, unknown or expired.
func (s *Sessions) Open(id string) *Dashboard {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupExpiredLocked(now)

	if d, ok := s.dashboards[id]; ok {
		d.expiresAt = now.Add(s.ttl)
		return d
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	panel := forecast.NewPanel()
	board := chart.NewBoard()
	d := &Dashboard{
		ID:        id,
		Panel:     panel,
		Board:     board,
		Adapter:   forecast.NewAdapter(panel, panel, s.predictor, forecast.NewRenderer(panel, board), s.logger.With("session", id)),
		expiresAt: now.Add(s.ttl),
	}
	s.dashboards[id] = d
	s.logger.Debugw("dashboard opened", "session", id)
	return d
}

// Submit runs one invocation on the dashboard for id.
func (s *Sessions) Submit(ctx context.Context, id string, req model.PredictRequest) View {
	d := s.Open(id)
	res := d.Adapter.Submit(ctx, req)

	view := View{SessionID: d.ID, Token: res.Token, Kind: res.Outcome.Kind.String(), Stale: res.Stale}
	if !res.Stale {
		s.mu.Lock()
		d.lastKind = view.Kind
		s.mu.Unlock()
		view.HistoryID = s.record(ctx, d.ID, res)
	}
	s.fillView(d, &view)
	return view
}

// Snapshot returns the current state of the dashboard for id.
func (s *Sessions) Snapshot(id string) (View, bool) {
	now := s.now()
	s.mu.Lock()
	s.cleanupExpiredLocked(now)
	d, ok := s.dashboards[id]
	var kind string
	if ok {
		kind = d.lastKind
	}
	s.mu.Unlock()
	if !ok {
		return View{}, false
	}

	view := View{SessionID: d.ID, Kind: kind}
	s.fillView(d, &view)
	return view, true
}

// Close destroys the dashboard's chart and forgets it.
func (s *Sessions) Close(id string) bool {
	s.mu.Lock()
	d, ok := s.dashboards[id]
	if ok {
		delete(s.dashboards, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	d.Board.Destroy(forecast.CanvasID)
	s.logger.Debugw("dashboard closed", "session", id)
	return true
}

// Len is the number of live dashboards.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupExpiredLocked(s.now())
	return len(s.dashboards)
}

func (s *Sessions) fillView(d *Dashboard, view *View) {
	view.OutputText = d.Panel.Text()
	if c, ok := d.Board.Current(forecast.CanvasID); ok {
		view.Chart = c
	}
	s.mu.Lock()
	view.ExpiresAt = d.expiresAt
	s.mu.Unlock()
}

func (s *Sessions) record(ctx context.Context, sessionID string, res forecast.Result) string {
	if s.recorder == nil {
		return ""
	}
	e := &store.Entry{
		SessionID:      sessionID,
		PredictRequest: res.Request,
		Kind:           res.Outcome.Kind.String(),
		StatusCode:     res.Outcome.StatusCode,
		Points:         len(res.Outcome.Points),
		OutputText:     res.Text,
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warnw("unable to record forecast history", "session", sessionID, "error", err)
		return ""
	}
	return e.ID
}

func (s *Sessions) cleanupExpiredLocked(now time.Time) {
	for id, d := range s.dashboards {
		if now.After(d.expiresAt) {
			d.Board.Destroy(forecast.CanvasID)
			delete(s.dashboards, id)
		}
	}
}
