package database

import (
	"fmt"
	"log"

	"gsm-dashboard/internal/models"

	"gorm.io/gorm"
)

// CopyTo copies every journal table into dst inside one transaction per
// table. Rows keep their ids, so dst should be empty.
func (j *Journal) CopyTo(dst *Journal) error {
	var mutations []models.MutationLog
	if err := copyTable(j.db, dst.db, "mutation_logs", &mutations); err != nil {
		return err
	}
	var samples []models.PollSample
	if err := copyTable(j.db, dst.db, "poll_samples", &samples); err != nil {
		return err
	}
	var settings []models.SystemSetting
	if err := copyTable(j.db, dst.db, "system_settings", &settings); err != nil {
		return err
	}
	return dst.syncSequences("mutation_logs", "poll_samples")
}

// copyTable reads everything from src into rows, a pointer to a slice, and
// writes it to dst in batches.
func copyTable[T any](src, dst *gorm.DB, table string, rows *[]T) error {
	log.Printf("Migrating table: %s", table)
	if err := src.Find(rows).Error; err != nil {
		return fmt.Errorf("read %s: %w", table, err)
	}
	if len(*rows) == 0 {
		return nil
	}
	err := dst.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	log.Printf("Migrated %d rows of %s", len(*rows), table)
	return nil
}

// syncSequences moves postgres id sequences past the copied ids. Other
// drivers track autoincrement themselves.
func (j *Journal) syncSequences(tables ...string) error {
	if j.db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, table := range tables {
		query := "SELECT setval(pg_get_serial_sequence('" + table + "', 'id'), coalesce(max(id), 0) + 1, false) FROM " + table
		if err := j.db.Exec(query).Error; err != nil {
			return fmt.Errorf("sync sequence for %s: %w", table, err)
		}
	}
	return nil
}
