package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gsm-dashboard/internal/compose"
	"gsm-dashboard/internal/gateway"
)

// Modem is the configuration and command side of the gateway.
type Modem interface {
	SendMessage(ctx context.Context, req gateway.SendRequest) (gateway.SendResult, error)
	HistoryConfig(ctx context.Context) (gateway.HistoryConfig, error)
	SaveHistoryConfig(ctx context.Context, cfg gateway.HistoryConfig) error
	BrokerConfig(ctx context.Context) (gateway.BrokerConfig, error)
	SaveBrokerConfig(ctx context.Context, cfg gateway.BrokerConfig) error
	TestBroker(ctx context.Context, creds gateway.BrokerCredentials) (gateway.BrokerTestResult, error)
	Settings(ctx context.Context) (gateway.Settings, error)
	SaveSettings(ctx context.Context, s gateway.Settings) error
	SendCommand(ctx context.Context, command string) (string, error)
}

type DeviceHandler struct {
	Modem Modem
}

func NewDeviceHandler(modem Modem) *DeviceHandler {
	return &DeviceHandler{Modem: modem}
}

func (h *DeviceHandler) SendMessage(c *gin.Context) {
	var draft compose.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := compose.Send(c.Request.Context(), h.Modem, draft)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *DeviceHandler) PreviewMessage(c *gin.Context) {
	var draft compose.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, draft.Preview())
}

func (h *DeviceHandler) GetHistoryConfig(c *gin.Context) {
	cfg, err := h.Modem.HistoryConfig(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *DeviceHandler) SaveHistoryConfig(c *gin.Context) {
	var cfg gateway.HistoryConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cfg.SMSHistoryMaxCount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "smsHistoryMaxCount must not be negative"})
		return
	}
	if err := h.Modem.SaveHistoryConfig(c.Request.Context(), cfg); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "History settings saved"})
}

func (h *DeviceHandler) GetBrokerConfig(c *gin.Context) {
	cfg, err := h.Modem.BrokerConfig(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *DeviceHandler) SaveBrokerConfig(c *gin.Context) {
	var cfg gateway.BrokerConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Modem.SaveBrokerConfig(c.Request.Context(), cfg); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Broker settings saved"})
}

// TestBroker always answers 200 with {success, error}. A transport failure
// is reported as a failed test.
func (h *DeviceHandler) TestBroker(c *gin.Context) {
	var creds gateway.BrokerCredentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Modem.TestBroker(c.Request.Context(), creds)
	if err != nil {
		log.Printf("Broker test failed: %v", err)
		result = gateway.BrokerTestResult{Success: false, Error: "connection error"}
	}
	c.JSON(http.StatusOK, result)
}

func (h *DeviceHandler) GetSettings(c *gin.Context) {
	s, err := h.Modem.Settings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}

// SaveSettings stores the form as sent. Defaults are only filled in when
// settings are read.
func (h *DeviceHandler) SaveSettings(c *gin.Context) {
	var s gateway.Settings
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Modem.SaveSettings(c.Request.Context(), s); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Settings saved"})
}

type CommandRequest struct {
	Command string `json:"command"`
}

// SendCommand forwards a raw AT command. A blank command is ignored.
func (h *DeviceHandler) SendCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	command := strings.TrimSpace(req.Command)
	if command == "" {
		c.Status(http.StatusNoContent)
		return
	}
	resp, err := h.Modem.SendCommand(c.Request.Context(), command)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"command": command, "response": resp})
}
