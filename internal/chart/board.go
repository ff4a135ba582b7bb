package chart

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Chart is one rendered chart bound to a canvas.
type Chart struct {
	ID        string    `json:"id"`
	CanvasID  string    `json:"canvas_id"`
	Config    Config    `json:"config"`
	CreatedAt time.Time `json:"created_at"`
}

// Board keeps at most one live chart per canvas. Rendering onto a canvas
// destroys whatever was there first.
type Board struct {
	mu        sync.Mutex
	charts    map[string]*Chart
	destroyed int
}

func NewBoard() *Board {
	return &Board{charts: make(map[string]*Chart)}
}

// Render replaces the chart on canvasID with a new one built from cfg.
func (b *Board) Render(canvasID string, cfg Config) *Chart {
	c := &Chart{
		ID:        uuid.NewString(),
		CanvasID:  canvasID,
		Config:    cfg,
		CreatedAt: time.Now(),
	}

	b.mu.Lock()
	if _, ok := b.charts[canvasID]; ok {
		b.destroyed++
	}
	b.charts[canvasID] = c
	b.mu.Unlock()
	return c
}

// Current returns the live chart on canvasID, if any.
func (b *Board) Current(canvasID string) (*Chart, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.charts[canvasID]
	return c, ok
}

// Destroy removes the chart on canvasID. It reports whether one existed.
func (b *Board) Destroy(canvasID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.charts[canvasID]; !ok {
		return false
	}
	delete(b.charts, canvasID)
	b.destroyed++
	return true
}

// Live is the number of canvases currently holding a chart.
func (b *Board) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.charts)
}

// Destroyed counts charts torn down so far.
func (b *Board) Destroyed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}
