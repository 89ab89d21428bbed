package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gsm-dashboard/internal/api"
	"gsm-dashboard/internal/config"
	"gsm-dashboard/internal/database"
	"gsm-dashboard/internal/directory"
	"gsm-dashboard/internal/gateway"
	"gsm-dashboard/internal/live"
	"gsm-dashboard/internal/prompt"
	"gsm-dashboard/internal/ws"

	"github.com/gin-gonic/gin"
)

const (
	sampleRetention = 24 * time.Hour
	pruneInterval   = time.Hour
)

func main() {
	cfg := config.LoadConfig()

	journal, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer journal.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub()
	go hub.Run(ctx)

	routes := gateway.DefaultRoutes()
	if cfg.LDAPSyncURL != "" {
		routes.ExternalSync = cfg.LDAPSyncURL
	}
	modem := gateway.NewClient(cfg.ModemURL, routes, cfg.ModemTimeout)

	cache := directory.NewCache(modem, directory.Options{
		Views:       []directory.View{hub},
		Journal:     journal,
		RequireLoad: true,
	})
	if err := cache.LoadWithRetry(ctx, directory.StartupBackoff(cfg.StartupRetry)); err != nil {
		log.Printf("Warning: contacts not loaded from %s: %v (use /api/contacts/reload)", cfg.ModemURL, err)
	} else {
		log.Printf("Loaded %d contacts from %s", cache.Len(), cfg.ModemURL)
	}

	broker := prompt.NewBroker(hub, cfg.PromptTimeout)
	dashboard := live.New(ctx, modem, hub, live.Options{
		DeviceInterval:  cfg.DevicePollInterval,
		QueueInterval:   cfg.QueuePollInterval,
		ConsoleInterval: cfg.ConsolePollInterval,
		FetchTimeout:    cfg.ModemTimeout,
		Journal:         journal,
		Settings:        journal,
	})
	dashboard.StartAll()
	go pruneSamples(ctx, journal)

	r := gin.Default()
	r.Use(api.CORS())
	api.RegisterRoutes(r, api.Handlers{
		Contacts:  api.NewContactHandler(cache, directory.NewSyncAdapter(modem, cache), broker),
		Dashboard: api.NewDashboardHandler(dashboard, journal),
		Device:    api.NewDeviceHandler(modem),
		Prompts:   api.NewPromptHandler(broker),
		Events:    hub.ServeWs,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		dashboard.StopAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}()

	log.Printf("Dashboard starting on port %s (modem %s)", cfg.Port, cfg.ModemURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to run server: %v", err)
	}
}

func pruneSamples(ctx context.Context, journal *database.Journal) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := journal.PruneSamples(sampleRetention)
			if err != nil {
				log.Printf("Error pruning poll samples: %v", err)
			} else if n > 0 {
				log.Printf("Pruned %d poll samples", n)
			}
		}
	}
}
