package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"optionsmonitor/src/connectors"
	"optionsmonitor/src/contract"
	"optionsmonitor/src/model"
	"optionsmonitor/src/trigger"
	"optionsmonitor/src/utils"
)

// Monitor owns the polling loop: which contracts to refresh, when, how fast,
// and how trigger results are applied back to position records. One instance
// per process; all scheduling state lives here, no ambient globals.
type Monitor struct {
	positions  PositionStore
	history    PriceHistoryStore
	alerts     AlertStore
	settings   SettingsStore
	cache      QuoteCache
	pricer     connectors.Pricer
	summarizer connectors.Summarizer
	notifier   connectors.Notifier

	contractDelay time.Duration
	briefingHour  int
	loc           *time.Location
	now           func() time.Time

	mu         sync.Mutex
	interval   time.Duration
	reschedule chan struct{}

	// runMu serializes poll cycles: the scheduled loop, ForceFullPoll and
	// SyncSymbol never walk contracts concurrently.
	runMu sync.Mutex
}

// Deps bundles the monitor's collaborators.
type Deps struct {
	Positions  PositionStore
	History    PriceHistoryStore
	Alerts     AlertStore
	Settings   SettingsStore
	Cache      QuoteCache
	Pricer     connectors.Pricer
	Summarizer connectors.Summarizer
	Notifier   connectors.Notifier
}

func New(deps Deps) *Monitor {
	config := GetConfig()

	return &Monitor{
		positions:     deps.Positions,
		history:       deps.History,
		alerts:        deps.Alerts,
		settings:      deps.Settings,
		cache:         deps.Cache,
		pricer:        deps.Pricer,
		summarizer:    deps.Summarizer,
		notifier:      deps.Notifier,
		contractDelay: config.ContractDelay,
		briefingHour:  config.BriefingHour,
		loc:           utils.ExchangeLocation(),
		now:           time.Now,
		interval:      time.Duration(model.DefaultPollIntervalSeconds) * time.Second,
		reschedule:    make(chan struct{}, 1),
	}
}

// Interval returns the current poll interval.
func (m *Monitor) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

func (m *Monitor) setInterval(d time.Duration) {
	m.mu.Lock()
	m.interval = d
	m.mu.Unlock()
}

// Start reads the persisted poll interval and launches the polling loop.
// The loop is self-rescheduling: each run arms the next timer only after the
// current cycle finishes, so a slow cycle never overlaps the next one.
func (m *Monitor) Start(ctx context.Context) {
	interval, err := m.settings.PollInterval(ctx)
	if err != nil {
		logger.WithError(err).Warn("Could not read poll interval, using default")
		interval = time.Duration(model.DefaultPollIntervalSeconds) * time.Second
	}
	m.setInterval(interval)

	go m.loop(ctx)
}

func (m *Monitor) loop(ctx context.Context) {
	logger.WithField("interval", m.Interval().String()).Info("Position monitoring started")

	for {
		timer := time.NewTimer(m.Interval())

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Position monitoring stopped")
			return
		case <-m.reschedule:
			// Interval changed: arm a fresh timer without running a cycle.
			timer.Stop()
			continue
		case <-timer.C:
		}

		if !MarketOpen(m.now().In(m.loc)) {
			logger.Debug("Outside market hours, skipping scheduled poll")
			continue
		}

		if err := m.runCycle(ctx, cycleOptions{}); err != nil {
			// Never fatal: the loop always reschedules.
			logger.WithError(err).Error("Poll cycle failed")
		}
	}
}

// UpdateInterval persists a new poll interval and reschedules the pending
// timer. An in-flight cycle is unaffected; only the next run moves.
func (m *Monitor) UpdateInterval(ctx context.Context, seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("poll interval must be positive, got %d", seconds)
	}

	interval := time.Duration(seconds) * time.Second
	if err := m.settings.SetPollInterval(ctx, interval); err != nil {
		return fmt.Errorf("persisting poll interval: %w", err)
	}

	m.setInterval(interval)

	select {
	case m.reschedule <- struct{}{}:
	default:
	}

	logger.WithField("interval", interval.String()).Info("Poll interval updated")
	return nil
}

// ForceFullPoll runs one cycle over every active position, bypassing both the
// market-hours gate and the quote cache.
func (m *Monitor) ForceFullPoll(ctx context.Context) error {
	return m.runCycle(ctx, cycleOptions{bypassCache: true})
}

// SyncSymbol narrows a cycle to one underlying's positions, used for
// on-demand refresh after a create or reopen. Bypasses the market-hours gate.
func (m *Monitor) SyncSymbol(ctx context.Context, symbol string, bypassCache bool) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	return m.runCycle(ctx, cycleOptions{symbol: symbol, bypassCache: bypassCache})
}

type cycleOptions struct {
	symbol      string
	bypassCache bool
}

// runCycle walks all distinct contracts sequentially, one quote fetch per
// contract, with a fixed delay between contracts for rate-limit compliance.
// Per-contract failures are logged and skipped; the cycle itself only fails
// on a store error fetching the position set.
func (m *Monitor) runCycle(ctx context.Context, opts cycleOptions) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	var (
		positions []model.Position
		err       error
	)
	if opts.symbol != "" {
		positions, err = m.positions.FindActiveBySymbol(ctx, opts.symbol)
	} else {
		positions, err = m.positions.FindActive(ctx)
	}
	if err != nil {
		return fmt.Errorf("fetching active positions: %w", err)
	}

	if len(positions) == 0 {
		logger.Debug("No active positions to poll")
		return nil
	}

	groups := groupByContract(positions)

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	logger.WithFields(map[string]interface{}{
		"positions": len(positions),
		"contracts": len(keys),
	}).Info("Poll cycle starting")

	for i, key := range keys {
		if i > 0 && m.contractDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.contractDelay):
			}
		}
		m.pollContract(ctx, key, groups[key], opts.bypassCache)
	}

	return nil
}

func groupByContract(positions []model.Position) map[string][]model.Position {
	groups := make(map[string][]model.Position)
	for _, p := range positions {
		key := contract.Key(p.Symbol, p.ExpirationDate, p.OptionType, p.StrikePrice)
		groups[key] = append(groups[key], p)
	}
	return groups
}

// pollContract refreshes every position sharing one contract: expired ones
// are auto-closed; the rest get one shared quote fed through the trigger
// engine.
func (m *Monitor) pollContract(ctx context.Context, key string, positions []model.Position, bypassCache bool) {
	now := m.now()

	var live []model.Position
	for _, p := range positions {
		if p.ExpiredAsOf(now.In(m.loc)) {
			closed, err := m.positions.CloseExpired(ctx, p.ID, now)
			if err != nil {
				continue
			}
			if closed {
				logger.WithFields(map[string]interface{}{
					"position_id": p.ID,
					"contract":    key,
					"expiration":  p.ExpirationDate.Format("2006-01-02"),
				}).Info("Expired position auto-closed")
			}
			continue
		}
		live = append(live, p)
	}

	if len(live) == 0 {
		return
	}

	quote := m.quoteFor(ctx, key, bypassCache)
	if quote == nil {
		return
	}

	for i := range live {
		m.applyQuote(ctx, &live[i], quote)
	}
}

// quoteFor is the cache-or-fetch step. A cache outage only degrades to
// always-fetch; a pricer failure skips the contract for this cycle.
func (m *Monitor) quoteFor(ctx context.Context, key string, bypassCache bool) *model.Quote {
	if !bypassCache {
		if quote, ok := m.cache.Get(ctx, key); ok {
			return quote
		}
	}

	quote, err := m.pricer.FetchQuote(ctx, key)
	if err != nil {
		logger.WithField("contract", key).
			WithError(err).Warn("No quote this cycle, skipping contract")
		return nil
	}

	m.cache.Set(ctx, key, quote)
	return quote
}

// applyQuote stores the observed price on one position and applies the
// trigger engine's verdict. Persistence failures abort only this position's
// update, never the cycle.
func (m *Monitor) applyQuote(ctx context.Context, p *model.Position, quote *model.Quote) {
	if err := m.positions.ApplyQuote(ctx, p.ID, quote); err != nil {
		return
	}

	if err := m.history.Record(ctx, p.ID, quote.Price, quote.FetchedAt); err != nil {
		logger.WithField("position_id", p.ID).
			WithError(err).Warn("Price history insert failed")
	}

	// Soft-triggered positions keep their price fresh but are never
	// re-evaluated; only an explicit reopen re-arms them.
	if p.Status != model.PositionStatusOpen {
		return
	}

	state := trigger.State{
		EntryPrice:        decimal.NewFromFloat(p.EntryPrice),
		TrailingHighPrice: decimal.NewFromFloat(p.TrailingHighPrice),
	}
	if p.StopLossTrigger != nil {
		v := decimal.NewFromFloat(*p.StopLossTrigger)
		state.StopLossTrigger = &v
	}
	if p.TakeProfitTrigger != nil {
		v := decimal.NewFromFloat(*p.TakeProfitTrigger)
		state.TakeProfitTrigger = &v
	}
	if p.TrailingStopLossPct != nil {
		v := decimal.NewFromFloat(*p.TrailingStopLossPct)
		state.TrailingStopLossPct = &v
	}

	outcome := trigger.Evaluate(decimal.NewFromFloat(quote.Price), state)

	if !outcome.Triggered {
		var newHigh, newStop *float64
		if outcome.NewHigh != nil {
			f, _ := outcome.NewHigh.Float64()
			newHigh = &f
		}
		if outcome.NewStopLoss != nil {
			f, _ := outcome.NewStopLoss.Float64()
			newStop = &f
		}
		if newHigh != nil || newStop != nil {
			// Guarded on the watermark this cycle read: a reopen that reset
			// it mid-cycle makes this a silent no-op instead of re-installing
			// discarded trailing progress.
			applied, err := m.positions.UpdateTrailing(ctx, p.ID, p.TrailingHighPrice, newHigh, newStop)
			if err == nil && applied {
				logger.WithFields(map[string]interface{}{
					"position_id": p.ID,
					"new_high":    newHigh,
					"new_stop":    newStop,
				}).Debug("Trailing state advanced")
			}
		}
		return
	}

	m.fireTrigger(ctx, p, quote, outcome)
}

// fireTrigger performs the conditional OPEN -> *_TRIGGERED transition, then
// records the alert and hands off to notification. A losing race on the
// conditional write means another path already transitioned the position, so
// everything downstream is skipped — no double alert, no double notify.
func (m *Monitor) fireTrigger(ctx context.Context, p *model.Position, quote *model.Quote, outcome trigger.Outcome) {
	status := model.PositionStatusProfitTriggered
	if outcome.TriggerType == model.TriggerTypeStopLoss {
		status = model.PositionStatusStopTriggered
	}

	realizedPnl := p.DollarPnl(quote.Price, p.Quantity)

	var lossAvoided *float64
	if outcome.LossAvoided != nil {
		f, _ := outcome.LossAvoided.Float64()
		lossAvoided = &f
	}

	applied, err := m.positions.MarkTriggered(ctx, p.ID, status, quote.Price, realizedPnl, lossAvoided)
	if err != nil || !applied {
		return
	}

	triggerPrice := quote.Price
	switch outcome.TriggerType {
	case model.TriggerTypeTakeProfit:
		if p.TakeProfitTrigger != nil {
			triggerPrice = *p.TakeProfitTrigger
		}
	case model.TriggerTypeStopLoss:
		if p.StopLossTrigger != nil {
			triggerPrice = *p.StopLossTrigger
		}
	}

	alert := &model.Alert{
		PositionID:   p.ID,
		TriggerType:  outcome.TriggerType,
		TriggerPrice: triggerPrice,
		ActualPrice:  quote.Price,
		RecordedAt:   m.now(),
	}
	if err := m.alerts.Record(ctx, alert); err != nil {
		logger.WithField("position_id", p.ID).
			WithError(err).Error("Alert insert failed after trigger transition")
	}

	logger.WithFields(map[string]interface{}{
		"position_id":  p.ID,
		"contract":     quote.ContractKey,
		"trigger_type": outcome.TriggerType,
		"actual_price": quote.Price,
		"realized_pnl": realizedPnl,
	}).Warn("Trigger fired")

	m.notifyTrigger(ctx, p, alert, realizedPnl, lossAvoided)
}

// notifyTrigger makes one best-effort delivery attempt. The state transition
// is already committed; failures here are logged and swallowed.
func (m *Monitor) notifyTrigger(ctx context.Context, p *model.Position, alert *model.Alert, realizedPnl float64, lossAvoided *float64) {
	event := connectors.NewEvent(connectors.EventTypeTrigger)
	event.UserID = p.UserID
	event.PositionID = p.ID
	event.Symbol = p.Symbol
	event.OptionType = p.OptionType
	event.StrikePrice = p.StrikePrice
	event.Expiration = p.ExpirationDate.Format("2006-01-02")
	event.TriggerType = alert.TriggerType
	event.Price = alert.ActualPrice
	event.RealizedPnl = &realizedPnl
	event.LossAvoided = lossAvoided

	if m.summarizer != nil {
		summary, err := m.summarizer.SummarizeAlert(ctx, connectors.AlertContext{
			Symbol:       p.Symbol,
			OptionType:   p.OptionType,
			StrikePrice:  p.StrikePrice,
			Expiration:   event.Expiration,
			TriggerType:  alert.TriggerType,
			TriggerPrice: alert.TriggerPrice,
			ActualPrice:  alert.ActualPrice,
			EntryPrice:   p.EntryPrice,
			RealizedPnl:  realizedPnl,
		})
		if err != nil {
			logger.WithField("position_id", p.ID).
				WithError(err).Warn("Alert summarization failed, sending without summary")
		} else {
			event.Summary = summary.Summary
			event.Message = summary.DiscordMessage
		}
	}

	if err := m.notifier.Send(ctx, event); err != nil {
		logger.WithFields(map[string]interface{}{
			"position_id": p.ID,
			"event_id":    event.EventID,
		}).WithError(err).Error("Trigger notification failed, not retrying")
	}
}
