package trigger

import (
	"github.com/shopspring/decimal"

	"optionsmonitor/src/model"
)

// State is the risk snapshot of one position at evaluation time.
// StopLossTrigger, TakeProfitTrigger and TrailingStopLossPct are nil when the
// corresponding control is not configured.
type State struct {
	EntryPrice          decimal.Decimal
	StopLossTrigger     *decimal.Decimal
	TakeProfitTrigger   *decimal.Decimal
	TrailingHighPrice   decimal.Decimal
	TrailingStopLossPct *decimal.Decimal
}

// Outcome is the result of feeding one price into Evaluate. On a trigger only
// Triggered/TriggerType (and LossAvoided for stops) are set. Otherwise NewHigh
// and NewStopLoss carry only the fields that actually moved, so callers can
// apply partial updates.
type Outcome struct {
	Triggered   bool
	TriggerType string
	LossAvoided *decimal.Decimal
	NewHigh     *decimal.Decimal
	NewStopLoss *decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// Evaluate decides whether currentPrice crosses a stop or target and how the
// trailing watermark moves. Take-profit is checked first and short-circuits
// all trailing logic. The high-water mark only moves up; the trailing stop
// only ratchets upward, never downward, even across multiple ticks. The stop
// hit is the single inclusive comparison: touching the stop exactly counts.
//
// LossAvoided is per unit; dollar P&L is the caller's business.
func Evaluate(currentPrice decimal.Decimal, s State) Outcome {
	if s.TakeProfitTrigger != nil && currentPrice.GreaterThanOrEqual(*s.TakeProfitTrigger) {
		return Outcome{Triggered: true, TriggerType: model.TriggerTypeTakeProfit}
	}

	var out Outcome
	effectiveStop := s.StopLossTrigger

	if currentPrice.GreaterThan(s.TrailingHighPrice) {
		high := currentPrice
		out.NewHigh = &high

		if s.TrailingStopLossPct != nil {
			pct := s.TrailingStopLossPct.Div(oneHundred)
			candidate := currentPrice.Mul(decimal.NewFromInt(1).Sub(pct))
			if effectiveStop == nil || candidate.GreaterThan(*effectiveStop) {
				out.NewStopLoss = &candidate
				effectiveStop = &candidate
			}
		}
	}

	if effectiveStop != nil && currentPrice.LessThanOrEqual(*effectiveStop) {
		avoided := s.EntryPrice.Sub(currentPrice)
		return Outcome{
			Triggered:   true,
			TriggerType: model.TriggerTypeStopLoss,
			LossAvoided: &avoided,
		}
	}

	return out
}

// DeriveStop computes the initial trailing stop for a watermark, i.e.
// highPrice * (1 - pct/100). Used when seeding a position and on reopen.
func DeriveStop(highPrice, pct decimal.Decimal) decimal.Decimal {
	return highPrice.Mul(decimal.NewFromInt(1).Sub(pct.Div(oneHundred)))
}
