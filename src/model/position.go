package model

import "time"

// Position is one tracked option contract bet. Prices are per-unit premiums;
// dollar P&L always applies the fixed 100x contract multiplier.
type Position struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index" json:"user_id"`

	Symbol         string    `gorm:"size:16;index;not null" json:"symbol"`
	OptionType     string    `gorm:"size:4;not null" json:"option_type"`
	StrikePrice    float64   `json:"strike_price"`
	ExpirationDate time.Time `gorm:"type:date" json:"expiration_date"`

	EntryPrice   float64  `json:"entry_price"`
	Quantity     int      `json:"quantity"`
	CurrentPrice *float64 `json:"current_price,omitempty"`

	StopLossTrigger     *float64 `json:"stop_loss_trigger,omitempty"`
	TakeProfitTrigger   *float64 `json:"take_profit_trigger,omitempty"`
	TrailingStopLossPct *float64 `json:"trailing_stop_loss_pct,omitempty"`
	TrailingHighPrice   float64  `json:"trailing_high_price"`

	RealizedPnl *float64 `json:"realized_pnl,omitempty"`
	LossAvoided *float64 `json:"loss_avoided,omitempty"`

	Delta           *float64 `json:"delta,omitempty"`
	Theta           *float64 `json:"theta,omitempty"`
	Gamma           *float64 `json:"gamma,omitempty"`
	Vega            *float64 `json:"vega,omitempty"`
	IV              *float64 `json:"iv,omitempty"`
	UnderlyingPrice *float64 `json:"underlying_price,omitempty"`

	Status string `gorm:"size:50;not null;default:OPEN;index" json:"status"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

const (
	PositionStatusOpen            = "OPEN"
	PositionStatusStopTriggered   = "STOP_TRIGGERED"
	PositionStatusProfitTriggered = "PROFIT_TRIGGERED"
	PositionStatusClosed          = "CLOSED"
)

const (
	OptionTypeCall = "CALL"
	OptionTypePut  = "PUT"
)

// ContractMultiplier converts a per-unit premium difference into dollars.
const ContractMultiplier = 100

// DollarPnl returns (exitPrice - entryPrice) * quantity * 100.
func (p *Position) DollarPnl(exitPrice float64, quantity int) float64 {
	return (exitPrice - p.EntryPrice) * float64(quantity) * ContractMultiplier
}

// ExpiredAsOf reports whether the contract's expiration date is strictly
// before the calendar day of now.
func (p *Position) ExpiredAsOf(now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	ey, em, ed := p.ExpirationDate.Date()
	exp := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return exp.Before(today)
}
