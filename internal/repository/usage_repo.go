package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wowjjang83/ai-style-synthesis/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Get returns the count for (userID, day); a missing row is zero usage.
func (r *UsageRepository) Get(ctx context.Context, userID uint, day string) (int, error) {
	var rec models.UsageRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND usage_date = ?", userID, day).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Count, nil
}

// Increment adds exactly one to (userID, day) in a single UPSERT statement,
// inserting count=1 when the row does not exist yet. The arithmetic happens in
// the database so concurrent callers never lose an update.
func (r *UsageRepository) Increment(ctx context.Context, userID uint, day string, at time.Time) error {
	rec := models.UsageRecord{UserID: userID, UsageDate: day, Count: 1, LastAttemptAt: at}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "usage_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":           gorm.Expr("usage_tracking.count + ?", 1),
			"last_attempt_at": at,
		}),
	}).Create(&rec).Error
}

// TotalForDate sums every user's count for day.
func (r *UsageRepository) TotalForDate(ctx context.Context, day string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.UsageRecord{}).
		Where("usage_date = ?", day).
		Select("COALESCE(SUM(count), 0)").
		Scan(&total).Error
	return total, err
}

// ListForDate returns the per-user rows of day, highest count first.
func (r *UsageRepository) ListForDate(ctx context.Context, day string) ([]models.UsageRecord, error) {
	var list []models.UsageRecord
	err := r.db.WithContext(ctx).
		Where("usage_date = ?", day).
		Order("count DESC").Order("user_id ASC").
		Find(&list).Error
	return list, err
}
