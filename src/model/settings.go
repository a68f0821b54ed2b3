package model

import "time"

// Settings holds per-user tunables. The process-wide poll interval lives on
// the user 0 row; briefing frequency is per user.
type Settings struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              uint      `gorm:"uniqueIndex" json:"user_id"`
	PollIntervalSeconds int       `gorm:"default:60" json:"poll_interval_seconds"`
	BriefingFrequency   string    `gorm:"size:20;not null;default:disabled" json:"briefing_frequency"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

const (
	BriefingDisabled   = "disabled"
	BriefingDaily      = "daily"
	BriefingEvery2Days = "every_2_days"
	BriefingMonday     = "monday"
	BriefingFriday     = "friday"
	BriefingWeekly     = "weekly"
)

// DefaultPollIntervalSeconds is used until a settings row exists.
const DefaultPollIntervalSeconds = 60
