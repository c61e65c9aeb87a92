package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Muzaffarxon04/tg-message-archiver/telegram"
	"github.com/Muzaffarxon04/tg-message-archiver/telemetry"
)

// Handlers holds the dependencies of the HTTP routes.
type Handlers struct {
	relay  Ingester
	checks []Check
	opts   Options
}

// HandleHealthz responds to liveness checks. It only reports that the process serves HTTP.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz runs the transport check followed by the registered checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := append([]Check{{"transport", func(context.Context) error {
		if !h.relay.Authorized() {
			return errors.New("telegram relay not authorized")
		}
		return nil
	}}}, h.checks...)

	for _, check := range checks {
		if err := check.Fn(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.Name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleTelegramUpdates ingests one TL plain-object update (or an array of
// them). Reconciliation runs before the response so the upstream session
// can apply backpressure; it is detached from client cancellation so an
// aborted request never leaves a half-applied write.
func (h *Handlers) HandleTelegramUpdates(w http.ResponseWriter, r *http.Request) {
	log := telemetry.LoggerWithCorr(r.Context()).With(slog.String("component", "relay"))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.opts.IngestTimeout)
	defer cancel()
	u, err := h.relay.Ingest(ctx, body)
	switch {
	case errors.Is(err, telegram.ErrNotConnected):
		http.Error(w, "relay not connected", http.StatusServiceUnavailable)
		return
	case errors.Is(err, telegram.ErrInvalidJSON):
		log.Warn("rejected malformed update", slog.Int("bytes", len(body)))
		http.Error(w, "invalid update json", http.StatusBadRequest)
		return
	case err != nil:
		log.Error("ingest failed", slog.Any("err", err))
		http.Error(w, "ingest failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "variant": u.Variant()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
