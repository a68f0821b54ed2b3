package scheduler

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ContractDelay is the pause between distinct contracts within one poll
	// cycle. The walk is deliberately sequential to respect the external
	// pricer's rate limits.
	ContractDelay time.Duration `envconfig:"CONTRACT_POLL_DELAY" default:"3s"`
	// BriefingHour is the exchange-local hour at which the daily briefing
	// job fires.
	BriefingHour int `envconfig:"BRIEFING_HOUR" default:"8"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
