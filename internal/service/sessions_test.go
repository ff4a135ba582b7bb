package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demand-forecast/internal/cache"
	"demand-forecast/internal/client"
	"demand-forecast/internal/model"
	"demand-forecast/internal/store"
	"demand-forecast/internal/testutil"
)

type failingRecorder struct{}

func (failingRecorder) Record(ctx context.Context, e *store.Entry) error {
	return errors.New("disk full")
}

func scriptedPredictor(t *testing.T, fail *bool) client.Predictor {
	t.Helper()
	return client.PredictorFunc(func(ctx context.Context, req model.PredictRequest) client.Outcome {
		if *fail {
			return client.Outcome{Kind: client.KindHTTPError, StatusCode: 400, Detail: "bad range"}
		}
		points, raw, err := client.DecodeEnvelope([]byte(`{"result":"[{\"hour\":1,\"pred\":42.5}]"}`))
		require.NoError(t, err)
		return client.Outcome{Kind: client.KindSuccess, Points: points, Raw: raw, StatusCode: 200}
	})
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	fail := false
	history, err := store.Open(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = history.Close() })

	s := NewSessions(scriptedPredictor(t, &fail), history, time.Minute, nil)
	req := model.PredictRequest{StartDate: "2026-11-20", StartTime: "00:00", EndDate: "2026-11-20", EndTime: "01:00"}
	ctx := context.Background()

	first := s.Submit(ctx, "", req)
	_, err = uuid.Parse(first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "success", first.Kind)
	assert.Equal(t, "[\n  {\n    \"hour\": 1,\n    \"pred\": 42.5\n  }\n]", first.OutputText)
	require.NotNil(t, first.Chart)
	assert.NotEmpty(t, first.HistoryID)

	fail = true
	second := s.Submit(ctx, first.SessionID, req)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, "http_error", second.Kind)
	assert.Equal(t, client.UnableToFetchText, second.OutputText)
	require.NotNil(t, second.Chart)
	assert.Equal(t, first.Chart.ID, second.Chart.ID)
	assert.Equal(t, 1, s.Len())

	entries, err := history.List(ctx, first.SessionID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	kinds := []string{entries[0].Kind, entries[1].Kind}
	assert.ElementsMatch(t, []string{"success", "http_error"}, kinds)
	assert.Equal(t, req, entries[0].PredictRequest)
}

func TestSubmitReplacesChart(t *testing.T) {
	t.Parallel()

	fail := false
	s := NewSessions(scriptedPredictor(t, &fail), nil, time.Minute, nil)
	ctx := context.Background()

	first := s.Submit(ctx, "", model.PredictRequest{})
	second := s.Submit(ctx, first.SessionID, model.PredictRequest{})

	d := s.Open(first.SessionID)
	assert.NotEqual(t, first.Chart.ID, second.Chart.ID)
	assert.Equal(t, 1, d.Board.Live())
	assert.Equal(t, 1, d.Board.Destroyed())
	assert.Equal(t, first.OutputText, second.OutputText)
	assert.Empty(t, second.HistoryID)
}

func TestSubmitRecorderFailure(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	fail := false
	s := NewSessions(scriptedPredictor(t, &fail), failingRecorder{}, time.Minute, testutil.DummyLogger(&output).Sugar())

	view := s.Submit(context.Background(), "", model.PredictRequest{})

	assert.Equal(t, "success", view.Kind)
	assert.Empty(t, view.HistoryID)
	assert.Contains(t, output.String(), "unable to record forecast history")
}

func TestOpen(t *testing.T) {
	t.Parallel()

	fail := false
	s := NewSessions(scriptedPredictor(t, &fail), nil, time.Minute, nil)

	known := uuid.NewString()
	assert.Equal(t, known, s.Open(known).ID)

	d := s.Open("not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", d.ID)
	_, err := uuid.Parse(d.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestSnapshotAndExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 11, 20, 12, 0, 0, 0, time.UTC)
	fail := false
	s := NewSessions(scriptedPredictor(t, &fail), nil, time.Minute, nil)
	s.now = func() time.Time { return now }

	d := s.Open("")
	view, ok := s.Snapshot(d.ID)
	require.True(t, ok)
	assert.Empty(t, view.Kind)
	assert.Empty(t, view.OutputText)
	assert.Nil(t, view.Chart)

	s.Submit(context.Background(), d.ID, model.PredictRequest{})
	view, ok = s.Snapshot(d.ID)
	require.True(t, ok)
	assert.Equal(t, "success", view.Kind)
	assert.NotNil(t, view.Chart)

	now = now.Add(2 * time.Minute)
	_, ok = s.Snapshot(d.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, d.Board.Live())
}

func TestClose(t *testing.T) {
	t.Parallel()

	fail := false
	s := NewSessions(scriptedPredictor(t, &fail), nil, time.Minute, nil)
	view := s.Submit(context.Background(), "", model.PredictRequest{})

	assert.True(t, s.Close(view.SessionID))
	assert.False(t, s.Close(view.SessionID))
	_, ok := s.Snapshot(view.SessionID)
	assert.False(t, ok)
}

func TestResubmitJoinsCachedFlight(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	arrived := make(chan struct{}, 2)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		arrived <- struct{}{}
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"[{\"hour\":1,\"pred\":42.5}]"}`))
	}))
	t.Cleanup(upstream.Close)

	predictor := cache.NewCachedPredictor(client.NewClient(upstream.URL, 0, nil), cache.NewMemory(), time.Minute, nil)
	s := NewSessions(predictor, nil, time.Minute, nil)
	id := s.Open("").ID
	req := model.PredictRequest{StartDate: "2026-11-20", StartTime: "00:00", EndDate: "2026-11-20", EndTime: "01:00"}

	firstView := make(chan View, 1)
	go func() { firstView <- s.Submit(context.Background(), id, req) }()
	<-arrived
	time.Sleep(50 * time.Millisecond)

	latest := s.Submit(context.Background(), id, req)
	first := <-firstView

	assert.True(t, first.Stale)
	assert.False(t, latest.Stale)
	assert.Equal(t, "success", latest.Kind)
	assert.Equal(t, "[\n  {\n    \"hour\": 1,\n    \"pred\": 42.5\n  }\n]", latest.OutputText)
	assert.NotNil(t, latest.Chart)
	assert.Equal(t, int32(1), hits.Load())
}
