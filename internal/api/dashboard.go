package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gsm-dashboard/internal/gateway"
	"gsm-dashboard/internal/models"
	"gsm-dashboard/internal/poll"
)

// LiveViews is the polling side of the dashboard.
type LiveViews interface {
	State(name string) (poll.Status, bool)
	States() []poll.Status
	SetConsoleAutoRefresh(enabled bool)
	ConsoleAutoRefresh() bool
	RefreshHistory(ctx context.Context) ([]gateway.HistoryEntry, error)
	RefreshCallLog(ctx context.Context) ([]gateway.CallLogEntry, error)
	RefreshConsole(ctx context.Context) (string, error)
}

type ActivityLog interface {
	Recent(limit int) ([]models.MutationLog, error)
	RecentSamples(target string, limit int) ([]models.PollSample, error)
}

type DashboardHandler struct {
	Live     LiveViews
	Activity ActivityLog
}

func NewDashboardHandler(live LiveViews, activity ActivityLog) *DashboardHandler {
	return &DashboardHandler{Live: live, Activity: activity}
}

func (h *DashboardHandler) GetStates(c *gin.Context) {
	c.JSON(http.StatusOK, h.Live.States())
}

func (h *DashboardHandler) GetState(c *gin.Context) {
	state, ok := h.Live.State(c.Param("target"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown live view"})
		return
	}
	c.JSON(http.StatusOK, state)
}

type AutoRefreshRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *DashboardHandler) SetConsoleAutoRefresh(c *gin.Context) {
	var req AutoRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.Live.SetConsoleAutoRefresh(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": h.Live.ConsoleAutoRefresh()})
}

func (h *DashboardHandler) GetHistory(c *gin.Context) {
	entries, err := h.Live.RefreshHistory(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []gateway.HistoryEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *DashboardHandler) GetCallLog(c *gin.Context) {
	calls, err := h.Live.RefreshCallLog(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if calls == nil {
		calls = []gateway.CallLogEntry{}
	}
	c.JSON(http.StatusOK, calls)
}

func (h *DashboardHandler) GetConsole(c *gin.Context) {
	text, err := h.Live.RefreshConsole(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.String(http.StatusOK, text)
}

func (h *DashboardHandler) GetActivity(c *gin.Context) {
	if h.Activity == nil {
		c.JSON(http.StatusOK, []models.MutationLog{})
		return
	}
	entries, err := h.Activity.Recent(queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *DashboardHandler) GetSamples(c *gin.Context) {
	if h.Activity == nil {
		c.JSON(http.StatusOK, []models.PollSample{})
		return
	}
	samples, err := h.Activity.RecentSamples(c.Query("target"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, samples)
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}
