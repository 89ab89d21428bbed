// Command migrate_journal copies the sqlite journal at DB_PATH into the
// postgres database at DB_DSN.
package main

import (
	"log"

	"gsm-dashboard/internal/config"
	"gsm-dashboard/internal/database"
)

func main() {
	cfg := config.LoadConfig()
	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN must point at the destination postgres database")
	}

	srcCfg := *cfg
	srcCfg.DBDriver = "sqlite"
	src, err := database.Open(&srcCfg)
	if err != nil {
		log.Fatalf("Failed to open sqlite journal at %s: %v", cfg.DBPath, err)
	}
	defer src.Close()

	dstCfg := *cfg
	dstCfg.DBDriver = "postgres"
	dst, err := database.Open(&dstCfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dst.Close()

	log.Println("Starting journal migration...")
	if err := src.CopyTo(dst); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("DONE!")
}
