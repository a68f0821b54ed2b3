package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"optionsmonitor/src/model"
)

// Summary is what the external summarizer hands back for an alert or a
// portfolio briefing.
type Summary struct {
	Summary        string `json:"summary"`
	DiscordMessage string `json:"discord_message"`
}

// AlertContext describes one fired trigger for summarization.
type AlertContext struct {
	Symbol       string  `json:"symbol"`
	OptionType   string  `json:"option_type"`
	StrikePrice  float64 `json:"strike_price"`
	Expiration   string  `json:"expiration"`
	TriggerType  string  `json:"trigger_type"`
	TriggerPrice float64 `json:"trigger_price"`
	ActualPrice  float64 `json:"actual_price"`
	EntryPrice   float64 `json:"entry_price"`
	RealizedPnl  float64 `json:"realized_pnl"`
}

// PortfolioContext describes one user's open book for a briefing.
type PortfolioContext struct {
	UserID    uint             `json:"user_id"`
	Positions []model.Position `json:"positions"`
	AsOf      time.Time        `json:"as_of"`
}

// Summarizer turns alert and portfolio context into human-readable text.
// Failures here never block the underlying state transition.
type Summarizer interface {
	SummarizeAlert(ctx context.Context, alert AlertContext) (*Summary, error)
	SummarizePortfolio(ctx context.Context, portfolio PortfolioContext) (*Summary, error)
}

// HTTPSummarizer talks to the external summarizer service.
type HTTPSummarizer struct {
	http *resty.Client
}

func NewHTTPSummarizer(baseURL string, timeout time.Duration) *HTTPSummarizer {
	return &HTTPSummarizer{http: newRestyClient(baseURL, timeout)}
}

func (s *HTTPSummarizer) SummarizeAlert(ctx context.Context, alert AlertContext) (*Summary, error) {
	return s.post(ctx, "/summarize/alert", alert)
}

func (s *HTTPSummarizer) SummarizePortfolio(ctx context.Context, portfolio PortfolioContext) (*Summary, error) {
	return s.post(ctx, "/summarize/portfolio", portfolio)
}

func (s *HTTPSummarizer) post(ctx context.Context, path string, body interface{}) (*Summary, error) {
	var summary Summary

	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&summary).
		Post(path)

	if err != nil {
		return nil, fmt.Errorf("summarizer request failed: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("summarizer returned HTTP %d", resp.StatusCode())
	}

	return &summary, nil
}
