package connectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPricerFetchQuote(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"status": "ok",
			"symbol": "AAPL250616C00150000",
			"price": 12.35,
			"greeks": {"delta": 0.55, "theta": -0.04},
			"iv": 0.31,
			"underlying_price": 152.10
		}`)
	}))
	defer srv.Close()

	pricer := NewHTTPPricer(srv.URL, 2*time.Second)

	quote, err := pricer.FetchQuote(context.Background(), "AAPL250616C00150000")
	require.NoError(t, err)

	assert.Equal(t, "/quote/AAPL250616C00150000", gotPath)
	assert.Equal(t, "AAPL250616C00150000", quote.ContractKey)
	assert.Equal(t, 12.35, quote.Price)
	require.NotNil(t, quote.Delta)
	assert.Equal(t, 0.55, *quote.Delta)
	require.NotNil(t, quote.Theta)
	assert.Equal(t, -0.04, *quote.Theta)
	assert.Nil(t, quote.Gamma)
	assert.Nil(t, quote.Vega)
	require.NotNil(t, quote.IV)
	assert.Equal(t, 0.31, *quote.IV)
	require.NotNil(t, quote.UnderlyingPrice)
	assert.Equal(t, 152.10, *quote.UnderlyingPrice)
	assert.False(t, quote.FetchedAt.IsZero())
}

func TestHTTPPricerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status": "error", "symbol": "AAPL250616C00150000", "message": "Price not found"}`)
	}))
	defer srv.Close()

	pricer := NewHTTPPricer(srv.URL, 2*time.Second)

	_, err := pricer.FetchQuote(context.Background(), "AAPL250616C00150000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoQuote))
	assert.Contains(t, err.Error(), "Price not found")
}

func TestHTTPPricerHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	pricer := NewHTTPPricer(srv.URL, 2*time.Second)

	_, err := pricer.FetchQuote(context.Background(), "AAPL250616C00150000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestWebhookNotifierNoURLConfigured(t *testing.T) {
	notifier := NewWebhookNotifier("", time.Second)

	// Dropping silently is correct: delivery is best-effort and optional.
	err := notifier.Send(context.Background(), NewEvent(EventTypeTrigger))
	assert.NoError(t, err)
}

func TestWebhookNotifierDelivers(t *testing.T) {
	delivered := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(srv.URL, time.Second)

	event := NewEvent(EventTypeTrigger)
	event.Symbol = "AAPL"
	require.NoError(t, notifier.Send(context.Background(), event))
	assert.Equal(t, 1, delivered)
}

func TestWebhookNotifierSingleAttempt(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(srv.URL, time.Second)

	err := notifier.Send(context.Background(), NewEvent(EventTypeBriefing))
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "notifier must not retry")
}
