package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demand-forecast/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	e := &Entry{
		SessionID: "s1",
		PredictRequest: model.PredictRequest{
			StartDate: "2026-11-20",
			StartTime: "00:00",
			EndDate:   "2026-11-21",
			EndTime:   "06:00",
		},
		Kind:       "success",
		StatusCode: 200,
		Points:     31,
		OutputText: "[]",
	}
	require.NoError(t, s.Record(ctx, e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.PredictRequest, got.PredictRequest)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, 31, got.Points)
	assert.True(t, e.CreatedAt.Equal(got.CreatedAt))

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndPrune(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		id      string
		session string
		age     time.Duration
	}{
		{"a", "s1", 3 * time.Hour},
		{"b", "s2", 2 * time.Hour},
		{"c", "s1", time.Hour},
	}
	for _, tc := range cases {
		require.NoError(t, s.Record(ctx, &Entry{ID: tc.id, SessionID: tc.session, Kind: "success", CreatedAt: base.Add(-tc.age)}))
	}

	all, err := s.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	s1, err := s.List(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Len(t, s1, 2)

	limited, err := s.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	n, err := s.Prune(ctx, base.Add(-90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rest, err := s.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c", rest[0].ID)
}
