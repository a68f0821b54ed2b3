package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	polled      int
	synced      []string
	bypassed    []bool
	interval    time.Duration
	intervalErr error
}

func (f *fakeEngine) ForceFullPoll(ctx context.Context) error {
	f.polled++
	return nil
}

func (f *fakeEngine) SyncSymbol(ctx context.Context, symbol string, bypassCache bool) error {
	f.synced = append(f.synced, symbol)
	f.bypassed = append(f.bypassed, bypassCache)
	return nil
}

func (f *fakeEngine) UpdateInterval(ctx context.Context, seconds int) error {
	if f.intervalErr != nil {
		return f.intervalErr
	}
	f.interval = time.Duration(seconds) * time.Second
	return nil
}

func (f *fakeEngine) Interval() time.Duration {
	return f.interval
}

func TestHealthcheck(t *testing.T) {
	server := httptest.NewServer(NewRouter(&fakeEngine{}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthcheck")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestForcePoll(t *testing.T) {
	engine := &fakeEngine{}
	server := httptest.NewServer(NewRouter(engine))
	defer server.Close()

	resp, err := http.Post(server.URL+"/poll", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, engine.polled)
}

func TestSyncSymbolPassesBypassFlag(t *testing.T) {
	engine := &fakeEngine{}
	server := httptest.NewServer(NewRouter(engine))
	defer server.Close()

	resp, err := http.Post(server.URL+"/sync/TSLA?bypass_cache=true", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"TSLA"}, engine.synced)
	assert.Equal(t, []bool{true}, engine.bypassed)
}

func TestUpdatePollInterval(t *testing.T) {
	engine := &fakeEngine{}
	server := httptest.NewServer(NewRouter(engine))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPut, server.URL+"/settings/poll-interval",
		strings.NewReader(`{"interval_seconds": 30}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 30*time.Second, engine.interval)
}

func TestUpdatePollIntervalRejectsBadValue(t *testing.T) {
	engine := &fakeEngine{intervalErr: errors.New("poll interval must be positive")}
	server := httptest.NewServer(NewRouter(engine))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPut, server.URL+"/settings/poll-interval",
		strings.NewReader(`{"interval_seconds": 0}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUpdatePollIntervalRejectsMalformedBody(t *testing.T) {
	server := httptest.NewServer(NewRouter(&fakeEngine{}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPut, server.URL+"/settings/poll-interval",
		strings.NewReader("not json"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
