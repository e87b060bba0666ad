package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"airhealth/api"
	"airhealth/internal"
	"airhealth/internal/config"
	"airhealth/internal/container"
	"airhealth/ui"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	logger := internal.NewDefaultLogger()

	c, err := container.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to wire application: %v", err)
	}
	defer c.Shutdown(context.Background())

	if cfg.Dashboard.Enabled {
		dashboard, err := ui.NewServer(c.Service, logger.Named("ui"))
		if err != nil {
			log.Fatalf("Failed to create dashboard: %v", err)
		}
		go func() {
			log.Printf("📊 Dashboard starting on http://localhost:%s", cfg.Dashboard.Port)
			if err := dashboard.Start(":" + cfg.Dashboard.Port); err != nil {
				log.Printf("Dashboard server failed: %v", err)
			}
		}()
	}

	apiApp := api.NewApp(api.Config{
		Addr:           ":" + cfg.Server.Port,
		MetricsEnabled: cfg.Metrics.Enabled,
	}, c.Service, logger.Named("api"))

	log.Printf("🚀 Starting analysis API on port %s", cfg.Server.Port)
	log.Fatal(apiApp.Start())
}
