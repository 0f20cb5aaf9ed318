package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/pwoszkowski/macrospy/config"
	"github.com/pwoszkowski/macrospy/internal/database"
)

// waitForDatabase blocks until Postgres accepts connections, so the migrator
// can run as an init step before the database container is fully up.
func waitForDatabase(cfg *config.Config, timeout time.Duration) error {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
	)

	deadline := time.Now().Add(timeout)
	for {
		db, err := sql.Open("postgres", connStr)
		if err == nil {
			err = db.Ping()
			db.Close()
		}
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("database not ready after %v: %w", timeout, err)
		}
		log.Printf("Waiting for database: %v", err)
		time.Sleep(2 * time.Second)
	}
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := waitForDatabase(cfg, time.Minute); err != nil {
		log.Fatalf("%v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration complete")
}
