package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"coffeebot-service/models"
	"coffeebot-service/utils"

	"gorm.io/gorm"
)

// BackupService exports ledger rows written since the last successful
// checkpoint to the object store. Each run covers the window
// (high-water mark, latest row]; a failed run leaves the mark alone so
// the next scheduled run retries the same window.
type BackupService struct {
	db       *gorm.DB
	uploader Uploader
	clock    *utils.Clock
	prefix   string
}

func NewBackupService(db *gorm.DB, uploader Uploader, clock *utils.Clock, prefix string) *BackupService {
	return &BackupService{
		db:       db,
		uploader: uploader,
		clock:    clock,
		prefix:   prefix,
	}
}

// Run performs one backup pass
func (s *BackupService) Run(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	mark, err := s.lastHighWaterMark(db)
	if err != nil {
		return fmt.Errorf("reading last checkpoint: %w", err)
	}

	var events []models.DrinkEvent
	if err := db.
		Where("created_at > ?", mark).
		Order("created_at ASC").Order("id ASC").
		Find(&events).Error; err != nil {
		s.recordAttempt(mark, 0, false, fmt.Sprintf("query failed: %v", err))
		return fmt.Errorf("loading events since %s: %w", mark.Format(time.RFC3339), err)
	}

	if len(events) == 0 {
		log.Println("Backup: nothing to back up")
		return nil
	}

	body, newMark, err := serializeEvents(events)
	if err != nil {
		s.recordAttempt(mark, 0, false, fmt.Sprintf("serialize failed: %v", err))
		return fmt.Errorf("serializing %d events: %w", len(events), err)
	}

	key := fmt.Sprintf("%scoffee-events-%s.jsonl", s.prefix, newMark.UTC().Format("20060102T150405Z"))
	if err := s.uploader.Upload(ctx, key, body); err != nil {
		s.recordAttempt(mark, 0, false, fmt.Sprintf("upload failed: %v", err))
		return fmt.Errorf("uploading %s: %w", key, err)
	}

	// The new mark is the max row timestamp, not "now", so the next
	// window starts exactly where this one ended.
	if err := s.recordAttempt(newMark, len(events), true, ""); err != nil {
		return fmt.Errorf("recording checkpoint: %w", err)
	}

	log.Printf("Backup: exported %d events to %s", len(events), key)
	return nil
}

// lastHighWaterMark returns the mark of the most recent successful
// checkpoint, or the epoch when no backup has succeeded yet.
func (s *BackupService) lastHighWaterMark(db *gorm.DB) (time.Time, error) {
	var checkpoint models.BackupCheckpoint
	err := db.
		Where("succeeded = ?", true).
		Order("attempted_at DESC").Order("id DESC").
		First(&checkpoint).Error
	if err == gorm.ErrRecordNotFound {
		return time.Unix(0, 0).UTC(), nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return checkpoint.HighWaterMark, nil
}

func (s *BackupService) recordAttempt(mark time.Time, rows int, succeeded bool, message string) error {
	attempt := models.BackupCheckpoint{
		AttemptedAt:   s.clock.Now(),
		HighWaterMark: mark,
		Succeeded:     succeeded,
		RowCount:      rows,
		Message:       message,
	}
	if err := s.db.Create(&attempt).Error; err != nil {
		log.Printf("Backup: failed to record checkpoint: %v", err)
		return err
	}
	return nil
}

// serializeEvents renders events as line-delimited JSON and returns the
// max creation timestamp observed.
func serializeEvents(events []models.DrinkEvent) ([]byte, time.Time, error) {
	var buf bytes.Buffer
	var maxTS time.Time
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return nil, time.Time{}, err
		}
		if e.CreatedAt.After(maxTS) {
			maxTS = e.CreatedAt
		}
	}
	return buf.Bytes(), maxTS, nil
}
