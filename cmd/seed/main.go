package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/zfogg/bizfeed/backend/internal/config"
	"github.com/zfogg/bizfeed/backend/internal/database"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/seed"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Parse command
	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "dev":
		seedDev()
	case "clean":
		cleanSeed()
	default:
		fmt.Println("Usage: seed [dev|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  clean - Remove all seed data (users under @" + seed.EmailDomain + ")")
		os.Exit(1)
	}
}

func connect() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Initialize(cfg.Logging.Level, "-"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	if err := database.Initialize(cfg.Database, false); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Database connected")
}

func seedDev() {
	log.Println("Seeding development database...")
	connect()
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if err := seed.NewSeeder(database.DB).SeedDev(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Development database seeded successfully")
}

func cleanSeed() {
	log.Println("Cleaning seed data...")
	connect()
	defer database.Close()

	if err := seed.NewSeeder(database.DB).Clean(); err != nil {
		log.Fatalf("Clean failed: %v", err)
	}

	log.Println("Seed data cleaned successfully")
}
