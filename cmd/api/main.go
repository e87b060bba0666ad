package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"airhealth/api"
	"airhealth/internal"
	"airhealth/internal/config"
	"airhealth/internal/container"
)

// API-only entrypoint for deployments that run the dashboard separately.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	c, err := container.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to wire application: %v", err)
	}
	defer c.Shutdown(context.Background())

	app := api.NewApp(api.Config{
		Addr:           ":" + cfg.Server.Port,
		MetricsEnabled: cfg.Metrics.Enabled,
	}, c.Service, logger.Named("api"))

	log.Printf("🚀 Starting analysis API on port %s", cfg.Server.Port)
	log.Fatal(app.Start())
}
