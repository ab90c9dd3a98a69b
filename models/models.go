package models

import (
	"time"

	"gorm.io/gorm"
)

// DrinkEvent is one recorded coffee. One row per unit consumed; rows are
// appended by an add and removed by a subtract correction, never updated.
type DrinkEvent struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:50;not null;index" json:"user_id"`
	UserName  string    `gorm:"size:200" json:"user_name"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName keeps the table name from the original deployment.
func (DrinkEvent) TableName() string {
	return "coffees"
}

// BackupCheckpoint records one backup attempt. The high-water mark of the
// most recent successful row is the exclusive lower bound of the next
// backup window. Rows are append-only.
type BackupCheckpoint struct {
	ID            uint64    `gorm:"primaryKey" json:"id"`
	AttemptedAt   time.Time `gorm:"not null" json:"attempted_at"`
	HighWaterMark time.Time `gorm:"not null" json:"high_water_mark"`
	Succeeded     bool      `gorm:"not null" json:"succeeded"`
	RowCount      int       `gorm:"default:0" json:"row_count"`
	Message       string    `gorm:"size:500" json:"message,omitempty"`
}

// TableName specifies the table name for BackupCheckpoint
func (BackupCheckpoint) TableName() string {
	return "backup_checkpoints"
}

// AutoMigrate runs database migrations
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&DrinkEvent{},
		&BackupCheckpoint{},
	)
}
