package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/zfogg/bizfeed/backend/internal/config"
	"github.com/zfogg/bizfeed/backend/internal/database"
	"github.com/zfogg/bizfeed/backend/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Parse command
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		runMigrationsUp()
	default:
		fmt.Println("Usage: migrate [up]")
		fmt.Println("  up     - Create or update all tables and indexes")
		os.Exit(1)
	}
}

func runMigrationsUp() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Initialize(cfg.Logging.Level, "-"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	log.Println("Connecting to database...")
	if err := database.Initialize(cfg.Database, false); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	log.Println("Running migrations...")
	if err := database.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("All migrations completed successfully")
}
