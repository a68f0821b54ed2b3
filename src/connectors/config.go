package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	PricerBaseURL     string        `envconfig:"PRICER_BASE_URL" default:"http://localhost:8001"`
	SummarizerBaseURL string        `envconfig:"SUMMARIZER_BASE_URL" default:"http://localhost:8002"`
	WebhookURL        string        `envconfig:"NOTIFY_WEBHOOK_URL"`
	RequestTimeout    time.Duration `envconfig:"CONNECTOR_TIMEOUT" default:"15s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
