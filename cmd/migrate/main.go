package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	down := flag.Bool("down", false, "roll back all migrations instead of applying them")
	source := flag.String("source", "file://migrations", "migration source URL")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment variables.")
	}

	dbURL := os.Getenv("POSTGRES_DB_URL")
	if dbURL == "" {
		log.Fatal("POSTGRES_DB_URL environment variable is not set")
	}

	// The pgx/v5 migrate driver registers the pgx5:// scheme.
	dbURL = strings.Replace(dbURL, "postgres://", "pgx5://", 1)

	m, err := migrate.New(*source, dbURL)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	defer m.Close()

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations applied successfully")
}
