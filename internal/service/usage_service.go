package service

import (
	"context"
	"time"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"
	"github.com/wowjjang83/ai-style-synthesis/internal/models"
	"github.com/wowjjang83/ai-style-synthesis/internal/repository"
)

// QuotaStatus is a user's position against the daily limit.
type QuotaStatus struct {
	Date      string `json:"date"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
}

// UsageLedger tracks per-user, per-day synthesis counts against the limit
// held in settings.
type UsageLedger struct {
	repo     *repository.UsageRepository
	settings *SettingsService
	now      func() time.Time
}

func NewUsageLedger(repo *repository.UsageRepository, settings *SettingsService) *UsageLedger {
	return &UsageLedger{repo: repo, settings: settings, now: time.Now}
}

// SetClock replaces the time source; tests use it to pin the calendar date.
func (l *UsageLedger) SetClock(now func() time.Time) { l.now = now }

// Today is the server-local calendar date key.
func (l *UsageLedger) Today() string {
	return l.now().Local().Format(domain.UsageDateLayout)
}

func (l *UsageLedger) DailyLimit(ctx context.Context) int {
	return l.settings.DailyLimit(ctx)
}

// Usage returns the count for (userID, day), zero when no row exists.
func (l *UsageLedger) Usage(ctx context.Context, userID uint, day string) (int, error) {
	n, err := l.repo.Get(ctx, userID, day)
	if err != nil {
		return 0, apperr.Storage(err, "could not read usage")
	}
	return n, nil
}

// Increment adds exactly one unit. A nil error means the unit was recorded.
func (l *UsageLedger) Increment(ctx context.Context, userID uint, day string) error {
	if err := l.repo.Increment(ctx, userID, day, l.now()); err != nil {
		return apperr.Storage(err, "could not record usage")
	}
	return nil
}

// Status reports limit, usage and what is left for day.
func (l *UsageLedger) Status(ctx context.Context, userID uint, day string) (QuotaStatus, error) {
	limit := l.DailyLimit(ctx)
	used, err := l.Usage(ctx, userID, day)
	if err != nil {
		return QuotaStatus{}, err
	}
	return QuotaStatus{Date: day, Limit: limit, Used: used, Remaining: remaining(limit, used)}, nil
}

// Check rejects with QuotaExceeded when used >= limit, so a limit of 0 rejects
// every attempt.
func (l *UsageLedger) Check(ctx context.Context, userID uint, day string) (QuotaStatus, error) {
	st, err := l.Status(ctx, userID, day)
	if err != nil {
		return st, err
	}
	if st.Used >= st.Limit {
		return st, apperr.QuotaExceeded("daily synthesis limit reached")
	}
	return st, nil
}

// DailyReport is the admin view of one day's usage.
type DailyReport struct {
	Date    string               `json:"date"`
	Total   int64                `json:"total"`
	Limit   int                  `json:"limit"`
	Records []models.UsageRecord `json:"records"`
}

func (l *UsageLedger) Report(ctx context.Context, day string) (*DailyReport, error) {
	total, err := l.repo.TotalForDate(ctx, day)
	if err != nil {
		return nil, apperr.Storage(err, "could not read usage")
	}
	records, err := l.repo.ListForDate(ctx, day)
	if err != nil {
		return nil, apperr.Storage(err, "could not read usage")
	}
	return &DailyReport{Date: day, Total: total, Limit: l.DailyLimit(ctx), Records: records}, nil
}

func remaining(limit, used int) int {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}
