package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

// Engine is the slice of the scheduler the ops surface drives. Position CRUD
// lives in an external system; this server only exposes operator controls.
type Engine interface {
	ForceFullPoll(ctx context.Context) error
	SyncSymbol(ctx context.Context, symbol string, bypassCache bool) error
	UpdateInterval(ctx context.Context, seconds int) error
	Interval() time.Duration
}

// NewRouter builds the ops routes. Split from StartServer so tests can mount
// it on httptest.
func NewRouter(engine Engine) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("healthcheck write failed")
		}
	})

	r.Post("/poll", func(w http.ResponseWriter, r *http.Request) {
		if err := engine.ForceFullPoll(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "polled"})
	})

	r.Post("/sync/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		symbol := chi.URLParam(r, "symbol")
		bypassCache := r.URL.Query().Get("bypass_cache") == "true"

		if err := engine.SyncSymbol(r.Context(), symbol, bypassCache); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "synced", "symbol": symbol})
	})

	r.Put("/settings/poll-interval", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IntervalSeconds int `json:"interval_seconds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		if err := engine.UpdateInterval(r.Context(), body.IntervalSeconds); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":           "updated",
			"interval_seconds": int(engine.Interval().Seconds()),
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("Response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// StartServer runs the ops server until SIGINT or SIGTERM, then shuts down
// gracefully.
func StartServer(port string, engine Engine) {
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(engine),
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
