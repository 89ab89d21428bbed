package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Contacts  *ContactHandler
	Dashboard *DashboardHandler
	Device    *DeviceHandler
	Prompts   *PromptHandler
	// Events upgrades to the dashboard event stream.
	Events http.HandlerFunc
}

// CORS lets the dashboard page be served from another origin on the LAN.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RegisterRoutes mounts every dashboard route under /api.
func RegisterRoutes(r *gin.Engine, h Handlers) {
	apiGroup := r.Group("/api")
	{
		// Directory
		apiGroup.GET("/contacts", h.Contacts.GetContacts)
		apiGroup.POST("/contacts", h.Contacts.CreateContact)
		apiGroup.PUT("/contacts/:id", h.Contacts.UpdateContact)
		apiGroup.DELETE("/contacts/:id", h.Contacts.DeleteContact)
		apiGroup.POST("/contacts/import", h.Contacts.ImportContacts)
		apiGroup.GET("/contacts/export", h.Contacts.ExportContacts)
		apiGroup.POST("/contacts/sync", h.Contacts.SyncContacts)
		apiGroup.POST("/contacts/reload", h.Contacts.ReloadContacts)
		apiGroup.GET("/recipients", h.Contacts.GetRecipients)

		// Live views
		apiGroup.GET("/live", h.Dashboard.GetStates)
		apiGroup.GET("/live/:target", h.Dashboard.GetState)
		apiGroup.POST("/live/console/auto", h.Dashboard.SetConsoleAutoRefresh)
		apiGroup.GET("/history", h.Dashboard.GetHistory)
		apiGroup.GET("/call-log", h.Dashboard.GetCallLog)
		apiGroup.GET("/console", h.Dashboard.GetConsole)
		apiGroup.GET("/activity", h.Dashboard.GetActivity)
		apiGroup.GET("/activity/samples", h.Dashboard.GetSamples)

		// Modem
		apiGroup.POST("/messages", h.Device.SendMessage)
		apiGroup.POST("/messages/preview", h.Device.PreviewMessage)
		apiGroup.GET("/history/config", h.Device.GetHistoryConfig)
		apiGroup.PUT("/history/config", h.Device.SaveHistoryConfig)
		apiGroup.GET("/broker", h.Device.GetBrokerConfig)
		apiGroup.PUT("/broker", h.Device.SaveBrokerConfig)
		apiGroup.POST("/broker/test", h.Device.TestBroker)
		apiGroup.GET("/settings", h.Device.GetSettings)
		apiGroup.PUT("/settings", h.Device.SaveSettings)
		apiGroup.POST("/console/command", h.Device.SendCommand)

		// Confirmations
		apiGroup.GET("/prompts", h.Prompts.GetPending)
		apiGroup.POST("/prompts/:id", h.Prompts.Answer)

		if h.Events != nil {
			apiGroup.GET("/ws", gin.WrapF(h.Events))
		}
	}
}
