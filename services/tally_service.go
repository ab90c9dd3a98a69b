package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"coffeebot-service/models"
	"coffeebot-service/utils"

	"gorm.io/gorm"
)

// Tally limit violations. The command handler maps these to the fixed
// user-facing messages.
var (
	ErrAddLimit      = errors.New("add limit exceeded")
	ErrSubtractLimit = errors.New("subtract limit exceeded")
)

// RecordResult holds the counts after a recorded add or subtract, both
// re-derived from the store for the current day window.
type RecordResult struct {
	UserCount  int64
	TotalCount int64
}

// UserTally is one user's count for the day.
type UserTally struct {
	UserID   string
	UserName string
	Count    int64
}

// Summary is the day's global count plus the ranked per-user counts.
type Summary struct {
	Total int64
	Users []UserTally
}

// TallyService implements the coffee-counting rules over the ledger.
// It keeps no state of its own; every call re-derives counts from the
// store so replies never show stale numbers.
type TallyService struct {
	db          *gorm.DB
	clock       *utils.Clock
	maxAdd      int
	maxSubtract int
}

func NewTallyService(db *gorm.DB, clock *utils.Clock, maxAdd, maxSubtract int) *TallyService {
	return &TallyService{
		db:          db,
		clock:       clock,
		maxAdd:      maxAdd,
		maxSubtract: maxSubtract,
	}
}

// Record applies a delta to the user's ledger for today and returns the
// updated counts. Positive deltas append one row per unit; negative
// deltas delete the user's most recent rows in today's window, clamped
// to however many exist. A zero delta only reads the counts back.
func (s *TallyService) Record(ctx context.Context, userID, userName string, delta int) (RecordResult, error) {
	if delta > s.maxAdd {
		return RecordResult{}, ErrAddLimit
	}
	if -delta > s.maxSubtract {
		return RecordResult{}, ErrSubtractLimit
	}

	now := s.clock.Now()
	start, end := s.clock.DayWindow(now)
	db := s.db.WithContext(ctx)

	if delta != 0 {
		err := db.Transaction(func(tx *gorm.DB) error {
			if delta > 0 {
				events := make([]models.DrinkEvent, delta)
				for i := range events {
					events[i] = models.DrinkEvent{
						UserID:    userID,
						UserName:  userName,
						CreatedAt: now,
					}
				}
				return tx.Create(&events).Error
			}

			// Undo the user's most recent coffees first. Ordering by
			// id as well as created_at keeps the selection stable when
			// several rows share a timestamp.
			var ids []uint64
			if err := tx.Model(&models.DrinkEvent{}).
				Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
				Order("created_at DESC").Order("id DESC").
				Limit(-delta).
				Pluck("id", &ids).Error; err != nil {
				return err
			}
			if len(ids) == 0 {
				return nil
			}
			return tx.Delete(&models.DrinkEvent{}, ids).Error
		})
		if err != nil {
			return RecordResult{}, fmt.Errorf("recording coffees: %w", err)
		}
	}

	var result RecordResult
	if err := db.Model(&models.DrinkEvent{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Count(&result.UserCount).Error; err != nil {
		return RecordResult{}, fmt.Errorf("counting user coffees: %w", err)
	}
	if err := db.Model(&models.DrinkEvent{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&result.TotalCount).Error; err != nil {
		return RecordResult{}, fmt.Errorf("counting coffees: %w", err)
	}

	return result, nil
}

// Summarize returns today's global count and the per-user counts ranked
// descending. Users are keyed by user id and labelled with the display
// name on their most recent event; ties rank by user id ascending so
// the ordering is deterministic. A nil limit returns every user.
func (s *TallyService) Summarize(ctx context.Context, limit *int) (Summary, error) {
	start, end := s.clock.DayWindow(s.clock.Now())

	var events []models.DrinkEvent
	if err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at ASC").Order("id ASC").
		Find(&events).Error; err != nil {
		return Summary{}, fmt.Errorf("loading coffees: %w", err)
	}

	counts := make(map[string]*UserTally)
	for _, e := range events {
		tally, ok := counts[e.UserID]
		if !ok {
			tally = &UserTally{UserID: e.UserID}
			counts[e.UserID] = tally
		}
		tally.Count++
		tally.UserName = e.UserName
	}

	users := make([]UserTally, 0, len(counts))
	for _, tally := range counts {
		users = append(users, *tally)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Count != users[j].Count {
			return users[i].Count > users[j].Count
		}
		return users[i].UserID < users[j].UserID
	})

	if limit != nil && *limit < len(users) {
		users = users[:*limit]
	}

	return Summary{Total: int64(len(events)), Users: users}, nil
}

// Help returns the usage text
func (s *TallyService) Help() string {
	return fmt.Sprintf(`Ohai, and welcome to coffeebot. Coffeebot counts the coffees consumed by the group because why not.

The most important commands are:

- `+"`/coffee help`"+` - You found this already
- `+"`/coffee`"+` - add a single coffee
- `+"`/coffee <number>`"+` - add multiple coffees, max %d; but try to use /coffee when you get a coffee instead
- `+"`/coffee stomach-pump`"+` - subtract a single coffee
- `+"`/coffee -<number>`"+` - subtract multiple coffees, max %d; but try not to add coffees you're not drinking
- `+"`/coffee count`"+` - show the total number of coffees, and highest 5 coffee consumers
- `+"`/coffee count-all`"+` - show the total number of coffees, and _all_ coffee consumers`, s.maxAdd, s.maxSubtract)
}
