package model

import "time"

// PriceHistoryEntry is an append-only record of one observed premium for a
// position. Rows are never mutated; deleting a position cascades to them.
type PriceHistoryEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PositionID uint      `gorm:"index;not null" json:"position_id"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `gorm:"index" json:"recorded_at"`
}
