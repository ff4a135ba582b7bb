package handler

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"demand-forecast/internal/model"
	"demand-forecast/internal/service"
	"demand-forecast/internal/store"
)

// SessionHeader carries the dashboard session between requests.
const SessionHeader = "X-Session-ID"

//go:embed web/index.html
var indexHTML []byte

// History is the read side of the forecast history store.
type History interface {
	List(ctx context.Context, sessionID string, limit int) ([]store.Entry, error)
	Get(ctx context.Context, id string) (store.Entry, error)
}

// Handler serves the dashboard and its API.
type Handler struct {
	Sessions *service.Sessions
	History  History
	Logger   *zap.SugaredLogger
}

// NewHandler creates a Handler. history may be nil to disable the history API.
func NewHandler(sessions *service.Sessions, history History, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{Sessions: sessions, History: history, Logger: logger}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": h.Sessions.Len(),
	})
}

// Index serves the forecast page.
func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// Forecast runs one prediction for the caller's dashboard. Failed predictions
// still answer 200: the view carries the text to display.
func (h *Handler) Forecast(c *gin.Context) {
	var req model.PredictRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request: " + err.Error(),
		})
		return
	}

	view := h.Sessions.Submit(c.Request.Context(), sessionID(c), req)
	c.Header(SessionHeader, view.SessionID)
	c.JSON(http.StatusOK, view)
}

// GetSession returns the dashboard's current text and chart.
func (h *Handler) GetSession(c *gin.Context) {
	view, ok := h.Sessions.Snapshot(c.Param("session"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found or expired"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// CloseSession discards a dashboard and its chart.
func (h *Handler) CloseSession(c *gin.Context) {
	if !h.Sessions.Close(c.Param("session")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found or expired"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListHistory returns recent invocations, newest first.
func (h *Handler) ListHistory(c *gin.Context) {
	if h.History == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	entries, err := h.History.List(c.Request.Context(), c.Query("session"), limit)
	if err != nil {
		h.Logger.Errorw("unable to list history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to list history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// GetHistory returns one invocation.
func (h *Handler) GetHistory(c *gin.Context) {
	if h.History == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}

	entry, err := h.History.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.Logger.Errorw("unable to read history entry", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to read history entry"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func sessionID(c *gin.Context) string {
	if id := c.GetHeader(SessionHeader); id != "" {
		return id
	}
	return c.Query("session")
}
