package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gsm-dashboard/internal/config"
	"gsm-dashboard/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Journal is the dashboard's activity log. Write failures are logged and
// never returned to the caller.
type Journal struct {
	db *gorm.DB
}

// Open connects with the configured driver and migrates the journal tables.
func Open(cfg *config.Config) (*Journal, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.DBPath)
	case "postgres":
		if cfg.DBDSN == "" {
			return nil, errors.New("DB_DSN is required for the postgres driver")
		}
		dialector = postgres.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.DBDriver, err)
	}
	log.Printf("Connected to %s journal", dialector.Name())

	if err := db.AutoMigrate(
		&models.MutationLog{},
		&models.PollSample{},
		&models.SystemSetting{},
	); err != nil {
		return nil, fmt.Errorf("run auto-migration: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (j *Journal) RecordMutation(op string, contacts int, err error) {
	entry := models.MutationLog{Operation: op, Contacts: contacts, Success: err == nil}
	if err != nil {
		entry.Error = err.Error()
	}
	if res := j.db.Create(&entry); res.Error != nil {
		log.Printf("Error journaling %s: %v", op, res.Error)
	}
}

// RecordSample stores the rendered value of a live view, or the error that
// degraded it.
func (j *Journal) RecordSample(target string, value any, err error) {
	sample := models.PollSample{Target: target, Degraded: err != nil}
	if err != nil {
		sample.Error = err.Error()
	}
	if value != nil {
		payload, mErr := json.Marshal(value)
		if mErr != nil {
			log.Printf("Error marshaling %s sample: %v", target, mErr)
		} else {
			sample.Payload = string(payload)
		}
	}
	if res := j.db.Create(&sample); res.Error != nil {
		log.Printf("Error journaling %s sample: %v", target, res.Error)
	}
}

// Recent returns the latest directory writes, newest first.
func (j *Journal) Recent(limit int) ([]models.MutationLog, error) {
	var entries []models.MutationLog
	err := j.db.Order("id desc").Limit(limit).Find(&entries).Error
	return entries, err
}

// RecentSamples returns the latest samples of target, newest first. An empty
// target matches every view.
func (j *Journal) RecentSamples(target string, limit int) ([]models.PollSample, error) {
	q := j.db.Order("id desc").Limit(limit)
	if target != "" {
		q = q.Where("target = ?", target)
	}
	var samples []models.PollSample
	err := q.Find(&samples).Error
	return samples, err
}

// PruneSamples deletes samples older than maxAge and reports how many went.
func (j *Journal) PruneSamples(maxAge time.Duration) (int64, error) {
	res := j.db.Where("created_at < ?", time.Now().Add(-maxAge)).Delete(&models.PollSample{})
	return res.RowsAffected, res.Error
}

// Setting returns the stored value for key, and false if none was saved.
func (j *Journal) Setting(key string) (string, bool) {
	var setting models.SystemSetting
	if err := j.db.Where("key = ?", key).First(&setting).Error; err != nil {
		return "", false
	}
	return setting.Value, true
}

// SetSetting inserts or overwrites key.
func (j *Journal) SetSetting(key, value string) {
	setting := models.SystemSetting{Key: key, Value: value}
	if err := j.db.Save(&setting).Error; err != nil {
		log.Printf("Error saving setting %s: %v", key, err)
	}
}
