package models

import "time"

// UsageRecord counts synthesis attempts per user per server-local calendar day.
type UsageRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_usage_user_date,priority:1" json:"user_id"`
	UsageDate     string    `gorm:"size:10;not null;uniqueIndex:idx_usage_user_date,priority:2" json:"usage_date"` // YYYY-MM-DD
	Count         int       `gorm:"not null;default:0" json:"count"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}

func (UsageRecord) TableName() string { return "usage_tracking" }
