package connectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"optionsmonitor/src/model"
)

// Pricer fetches one quote for an OSI-style contract ticker. The backing
// implementation is a black box (HTTP bridge, RPC, subprocess wrapper).
type Pricer interface {
	FetchQuote(ctx context.Context, contractKey string) (*model.Quote, error)
}

// ErrNoQuote means the pricer answered but had no usable price for the
// contract. The cycle skips the contract and moves on.
var ErrNoQuote = errors.New("pricer returned no quote")

type greeksPayload struct {
	Delta *float64 `json:"delta"`
	Theta *float64 `json:"theta"`
	Gamma *float64 `json:"gamma"`
	Vega  *float64 `json:"vega"`
}

// quoteResponse is the pricer bridge's wire format: a status-tagged payload,
// never implicit nulls-as-zero for the optional fields.
type quoteResponse struct {
	Status          string         `json:"status"`
	Symbol          string         `json:"symbol"`
	Price           float64        `json:"price"`
	Greeks          *greeksPayload `json:"greeks"`
	IV              *float64       `json:"iv"`
	UnderlyingPrice *float64       `json:"underlying_price"`
	Message         string         `json:"message"`
}

// HTTPPricer talks to the option price bridge over HTTP.
type HTTPPricer struct {
	http *resty.Client
}

func NewHTTPPricer(baseURL string, timeout time.Duration) *HTTPPricer {
	return &HTTPPricer{http: newRestyClient(baseURL, timeout)}
}

// FetchQuote requests one quote by contract ticker.
func (p *HTTPPricer) FetchQuote(ctx context.Context, contractKey string) (*model.Quote, error) {
	var payload quoteResponse

	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&payload).
		SetPathParam("ticker", contractKey).
		Get("/quote/{ticker}")

	if err != nil {
		return nil, fmt.Errorf("pricer request for %s failed: %w", contractKey, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("pricer returned HTTP %d for %s", resp.StatusCode(), contractKey)
	}

	if payload.Status != "ok" {
		logger.WithFields(map[string]interface{}{
			"contract": contractKey,
			"message":  payload.Message,
		}).Warn("Pricer had no quote for contract")

		return nil, fmt.Errorf("%w for %s: %s", ErrNoQuote, contractKey, payload.Message)
	}

	if payload.Price <= 0 {
		return nil, fmt.Errorf("%w for %s: non-positive price", ErrNoQuote, contractKey)
	}

	quote := &model.Quote{
		ContractKey:     contractKey,
		Price:           payload.Price,
		IV:              payload.IV,
		UnderlyingPrice: payload.UnderlyingPrice,
		FetchedAt:       time.Now().UTC(),
	}
	if payload.Greeks != nil {
		quote.Delta = payload.Greeks.Delta
		quote.Theta = payload.Greeks.Theta
		quote.Gamma = payload.Greeks.Gamma
		quote.Vega = payload.Greeks.Vega
	}

	return quote, nil
}
