package scheduler

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"optionsmonitor/src/connectors"
	"optionsmonitor/src/model"
)

// StartBriefing launches the daily briefing job. Unlike the poll loop it is
// time-of-day based: it fires once per day at the configured exchange-local
// hour and checks each user's frequency setting against that day.
func (m *Monitor) StartBriefing(ctx context.Context) {
	go m.briefingLoop(ctx)
}

func (m *Monitor) briefingLoop(ctx context.Context) {
	logger.WithField("hour", m.briefingHour).Info("Briefing job started")

	for {
		now := m.now().In(m.loc)
		timer := time.NewTimer(nextBriefingTime(now, m.briefingHour).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Briefing job stopped")
			return
		case <-timer.C:
		}

		m.runBriefings(ctx)
	}
}

// nextBriefingTime returns the next occurrence of hour:00 strictly after now,
// in now's location.
func nextBriefingTime(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// BriefingDue decides whether a user with the given frequency setting gets a
// briefing on the given day. every_2_days uses day-of-year parity; weekly
// lands on Monday.
func BriefingDue(frequency string, day time.Time) bool {
	switch frequency {
	case model.BriefingDaily:
		return true
	case model.BriefingEvery2Days:
		return day.YearDay()%2 == 0
	case model.BriefingMonday:
		return day.Weekday() == time.Monday
	case model.BriefingFriday:
		return day.Weekday() == time.Friday
	case model.BriefingWeekly:
		return day.Weekday() == time.Monday
	default:
		return false
	}
}

func (m *Monitor) runBriefings(ctx context.Context) {
	userIDs, err := m.positions.UserIDsWithOpen(ctx)
	if err != nil {
		logger.WithError(err).Error("Could not list users for briefing")
		return
	}

	day := m.now().In(m.loc)

	for _, userID := range userIDs {
		frequency, err := m.settings.BriefingFrequency(ctx, userID)
		if err != nil {
			continue
		}
		if !BriefingDue(frequency, day) {
			continue
		}
		m.sendBriefing(ctx, userID, day)
	}
}

// sendBriefing builds one user's portfolio briefing and makes one delivery
// attempt. Everything here is best-effort.
func (m *Monitor) sendBriefing(ctx context.Context, userID uint, asOf time.Time) {
	positions, err := m.positions.FindOpenByUser(ctx, userID)
	if err != nil || len(positions) == 0 {
		return
	}

	event := connectors.NewEvent(connectors.EventTypeBriefing)
	event.UserID = userID

	if m.summarizer != nil {
		summary, err := m.summarizer.SummarizePortfolio(ctx, connectors.PortfolioContext{
			UserID:    userID,
			Positions: positions,
			AsOf:      asOf,
		})
		if err != nil {
			logger.WithField("user_id", userID).
				WithError(err).Warn("Portfolio summarization failed, skipping briefing")
			return
		}
		event.Summary = summary.Summary
		event.Message = summary.DiscordMessage
	}

	if err := m.notifier.Send(ctx, event); err != nil {
		logger.WithField("user_id", userID).
			WithError(err).Error("Briefing delivery failed, not retrying")
		return
	}

	logger.WithFields(map[string]interface{}{
		"user_id":   userID,
		"positions": len(positions),
	}).Info("Briefing sent")
}
