package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"demand-forecast/internal/client"
	"demand-forecast/internal/model"
)

const keyPrefix = "forecast:predict:"

type entry struct {
	Result     string `json:"result"`
	StatusCode int    `json:"status_code"`
}

// CachedPredictor serves repeated requests from a Provider. Only successful
// outcomes are stored; identical concurrent misses share one upstream call.
type CachedPredictor struct {
	Next       client.Predictor
	Provider   Provider
	Expiration time.Duration
	Logger     *zap.SugaredLogger

	group singleflight.Group
}

func NewCachedPredictor(next client.Predictor, provider Provider, expiration time.Duration, logger *zap.SugaredLogger) *CachedPredictor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CachedPredictor{Next: next, Provider: provider, Expiration: expiration, Logger: logger}
}

// Key derives the cache key for a request.
func Key(req model.PredictRequest) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedPredictor) Predict(ctx context.Context, req model.PredictRequest) client.Outcome {
	key := Key(req)

	var e entry
	err := c.Provider.Get(ctx, key, &e)
	if err == nil {
		points, derr := client.DecodeSeries([]byte(e.Result))
		if derr == nil {
			c.Logger.Debugw("prediction served from cache", "key", key, "points", len(points))
			return client.Outcome{Kind: client.KindSuccess, Points: points, Raw: json.RawMessage(e.Result), StatusCode: e.StatusCode}
		}
		c.Logger.Warnw("dropping unreadable cache entry", "key", key, "error", derr)
	} else if !errors.Is(err, ErrMiss) {
		c.Logger.Warnw("cache lookup failed", "key", key, "error", err)
	}

	// The shared call is detached so one caller's cancellation never reaches
	// the others; each caller still stops waiting when its own ctx ends.
	flight := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		out := c.Next.Predict(flight, req)
		if out.OK() {
			if err := c.Provider.Set(flight, key, entry{Result: string(out.Raw), StatusCode: out.StatusCode}, c.Expiration); err != nil {
				c.Logger.Warnw("cache store failed", "key", key, "error", err)
			}
		}
		return out, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.Logger.Debugw("prediction shared with a concurrent caller", "key", key)
		}
		return res.Val.(client.Outcome)
	case <-ctx.Done():
		return client.Outcome{Kind: client.KindTransportError, Err: ctx.Err()}
	}
}
