package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gsm-dashboard/internal/prompt"
)

type PromptHandler struct {
	Broker *prompt.Broker
}

func NewPromptHandler(broker *prompt.Broker) *PromptHandler {
	return &PromptHandler{Broker: broker}
}

func (h *PromptHandler) GetPending(c *gin.Context) {
	c.JSON(http.StatusOK, h.Broker.Pending())
}

type AnswerRequest struct {
	Accepted *bool `json:"accepted" binding:"required"`
}

func (h *PromptHandler) Answer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Broker.Resolve(c.Param("id"), *req.Accepted); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Answer recorded"})
}
