package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"qcalab/adapters/db/postgres/migrations"
	"qcalab/adapters/postgres"
	"qcalab/internal"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <database_url> [driver] [up|status]")
	}

	databaseURL := os.Args[1]
	driver := postgres.DriverPostgres
	if len(os.Args) > 2 {
		driver = os.Args[2]
	}
	action := "up"
	if len(os.Args) > 3 {
		action = os.Args[3]
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, driver, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db, internal.NewLogger(internal.LogLevelInfo))

	switch action {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Printf("Migration complete: %d applied", len(applied))
	case "status":
		status, err := migrator.Status(ctx)
		if err != nil {
			log.Fatalf("Failed to read migration status: %v", err)
		}
		for _, s := range status {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%s\t%s\t%s\n", s.Version, state, s.Name)
		}
		if err := migrator.Verify(ctx); err != nil {
			log.Fatalf("Checksum mismatch: %v", err)
		}
	default:
		log.Fatalf("Unknown action %q (use up or status)", action)
	}
}
