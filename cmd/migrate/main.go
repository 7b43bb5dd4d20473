package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"sentinal-social/config"
	"sentinal-social/pkg/database"
)

const usage = `
Sentinal Social - Messaging Database CLI

Usage:
  migrate [command] [flags]

Commands:
  up          Apply the SQL migrations
  status      Show connection status and messaging table sizes
  seed-dev    Create stand-in users and follows tables with test data

Flags:
  -migrations string   Path to migrations directory (default "migrations")
  -users int           Users to create with seed-dev (default 6)
  -mutual int          Mutually following pairs to create with seed-dev (default 2)

Examples:
  go run ./cmd/migrate up
  go run ./cmd/migrate status
  go run ./cmd/migrate -users 10 seed-dev
`

var messagingTables = []string{
	"conversations",
	"conversation_members",
	"conversation_left_members",
	"conversation_deletions",
	"messages",
	"message_reads",
	"message_deletions",
	"message_requests",
	"message_request_items",
	"conversation_invite_links",
}

func main() {
	migrationsDir := flag.String("migrations", "migrations", "Path to migrations directory")
	users := flag.Int("users", 6, "Users to create with seed-dev")
	mutual := flag.Int("mutual", 2, "Mutually following pairs to create with seed-dev")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	database.Connect(cfg)
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch command {
	case "up":
		runMigrationsUp(*migrationsDir)
	case "status":
		showStatus(ctx)
	case "seed-dev":
		runSeedDevelopment(ctx, &database.SeedConfig{UserCount: *users, MutualPairs: *mutual})
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(migrationsDir string) {
	log.Println("Running migrations UP...")

	if err := database.ApplyRawMigrations(migrationsDir); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully")
}

func showStatus(ctx context.Context) {
	log.Println("Checking database status...")

	if err := database.HealthCheck(); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	for _, table := range messagingTables {
		exists, err := database.TableExists(ctx, table)
		if err != nil {
			log.Printf("Error checking table %s: %v", table, err)
			continue
		}
		if !exists {
			log.Printf("Table %-28s does not exist", table)
			continue
		}
		count, _ := database.TableCount(ctx, table)
		log.Printf("Table %-28s exists (%d rows)", table, count)
	}
}

func runSeedDevelopment(ctx context.Context, cfg *database.SeedConfig) {
	log.Println("Seeding database (development mode)...")

	result, err := database.SeedDevelopment(ctx, cfg)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seed Summary:")
	for _, id := range result.Users {
		log.Printf("   - user %s", id)
	}
	log.Printf("   - follows: %d", result.Follows)
	log.Println("Development seeding completed")
}
