package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"school-eta-service/internal/adapters/repositories"
	"school-eta-service/internal/config"
	"school-eta-service/internal/platform/db"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// dbtool creates the Postgres schema and optionally loads demo data.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	seedPath := flag.String("seed", config.Get("SEED_PATH", "data/seeds/demo.json"), "seed file to load")
	skipSeed := flag.Bool("schema-only", false, "create the schema without seeding")
	flag.Parse()

	databaseURL := config.Get("DATABASE_URL", "")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := initAndSeed(ctx, conn, *seedPath, *skipSeed); err != nil {
		log.Fatal(err)
	}
}

func initAndSeed(ctx context.Context, conn *sql.DB, seedPath string, skipSeed bool) error {
	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(ctx, conn); err != nil {
		return err
	}
	log.Println("Schema ready.")

	if skipSeed {
		return nil
	}

	log.Printf("Seeding database from %s...", seedPath)
	if err := repositories.SeedFromJSON(ctx, conn, seedPath); err != nil {
		return err
	}
	log.Println("Seeding complete.")

	return nil
}
