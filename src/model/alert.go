package model

import "time"

// Alert is an append-only record of a fired trigger. Exactly one row per
// trigger event; rows are immutable once written.
type Alert struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PositionID   uint      `gorm:"index;not null" json:"position_id"`
	TriggerType  string    `gorm:"size:20;not null" json:"trigger_type"`
	TriggerPrice float64   `json:"trigger_price"`
	ActualPrice  float64   `json:"actual_price"`
	RecordedAt   time.Time `json:"recorded_at"`
}

const (
	TriggerTypeStopLoss   = "STOP_LOSS"
	TriggerTypeTakeProfit = "TAKE_PROFIT"
)
