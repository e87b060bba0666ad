package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"airhealth/internal"
	"airhealth/internal/config"
	"airhealth/internal/container"
	"airhealth/ui"
)

// Dashboard-only entrypoint. It reads bundles the API server has already
// cached; it never computes.
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

	server, err := ui.NewServer(c.Service, logger.Named("ui"))
	if err != nil {
		log.Fatalf("Failed to create dashboard: %v", err)
	}

	log.Printf("📊 Starting dashboard on http://localhost:%s", cfg.Dashboard.Port)
	log.Fatal(server.Start(":" + cfg.Dashboard.Port))
}
