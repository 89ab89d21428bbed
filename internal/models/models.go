package models

import (
	"time"
)

// MutationLog is one directory write, successful or not.
type MutationLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Operation string    `gorm:"type:varchar(20);index;not null" json:"operation"`
	Contacts  int       `json:"contacts"`
	Success   bool      `gorm:"index" json:"success"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (MutationLog) TableName() string {
	return "mutation_logs"
}

// PollSample is one completed fetch of a live view.
type PollSample struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Target    string    `gorm:"type:varchar(50);index;not null" json:"target"`
	Degraded  bool      `json:"degraded"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	Payload   string    `gorm:"type:text" json:"payload"` // JSON of the rendered value
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (PollSample) TableName() string {
	return "poll_samples"
}

// SystemSetting keeps operator-tunable values across restarts.
type SystemSetting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
