package monitor

import (
	"context"
	"os/signal"
	"syscall"

	logger "github.com/sirupsen/logrus"

	"optionsmonitor/src/connectors"
	"optionsmonitor/src/database"
	"optionsmonitor/src/quotecache"
	"optionsmonitor/src/repository"
	"optionsmonitor/src/scheduler"
)

// Build wires the monitoring engine from env config: gorm repositories over
// MainDB, the redis quote cache, and the three HTTP collaborators. The
// database must already be initialized.
func Build() *scheduler.Monitor {
	config := connectors.GetConfig()

	return scheduler.New(scheduler.Deps{
		Positions:  repository.NewPositionRepository(),
		History:    repository.NewPriceHistoryRepository(),
		Alerts:     repository.NewAlertRepository(),
		Settings:   repository.NewSettingsRepository(),
		Cache:      quotecache.New(),
		Pricer:     connectors.NewHTTPPricer(config.PricerBaseURL, config.RequestTimeout),
		Summarizer: connectors.NewHTTPSummarizer(config.SummarizerBaseURL, config.RequestTimeout),
		Notifier:   connectors.NewWebhookNotifier(config.WebhookURL, config.RequestTimeout),
	})
}

// Runner drives the engine headless: polling loop plus briefing job, no ops
// server. Blocks until SIGINT or SIGTERM.
type Runner struct{}

func (r *Runner) Start() error {
	if err := database.InitMainDB(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mon := Build()
	mon.Start(ctx)
	mon.StartBriefing(ctx)

	<-ctx.Done()
	logger.Info("Monitor runner stopped")
	return nil
}

// PollOnce runs a single forced full cycle and exits, for cron-style use or
// ad-hoc refresh outside market hours.
func PollOnce() error {
	if err := database.InitMainDB(); err != nil {
		return err
	}
	return Build().ForceFullPoll(context.Background())
}
