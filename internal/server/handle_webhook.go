package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/playperu/scavengerbot/internal/messenger"
)

const (
	maxWebhookBody = 1 << 20
	pageObject     = "page"
)

// handleWebhookVerify answers the platform's subscription handshake.
func handleWebhookVerify(logger *slog.Logger, verifyToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != verifyToken {
			logger.Warn("webhook validation failed", "mode", q.Get("hub.mode"))
			writeError(w, http.StatusForbidden, "validation failed")
			return
		}

		logger.Info("webhook validated")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, q.Get("hub.challenge"))
	}
}

// handleWebhookReceive verifies and dispatches a page callback. Every
// messaging event is handed to conv in order; per-event failures are
// logged and the platform still gets a 200 so it does not redeliver.
func handleWebhookReceive(logger *slog.Logger, appSecret string, conv Conversations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "body too large")
			return
		}

		if err := verifySignature(appSecret, body, r.Header.Get(signatureHeader)); err != nil {
			logger.Warn("rejected webhook", "error", err)
			writeError(w, http.StatusForbidden, "invalid signature")
			return
		}

		var cb messenger.Callback
		if err := json.NewDecoder(bytes.NewReader(body)).Decode(&cb); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if cb.Object != pageObject {
			writeError(w, http.StatusNotFound, "unsupported object")
			return
		}

		for _, entry := range cb.Entry {
			for _, ev := range entry.Messaging {
				err := conv.Handle(r.Context(), ev)
				switch {
				case err == nil:
				case errors.Is(err, messenger.ErrMalformedEvent):
					logger.Warn("skipped messaging event", "page", entry.ID, "sender", ev.Sender.ID, "error", err)
				default:
					logger.Error("handling messaging event", "page", entry.ID, "sender", ev.Sender.ID, "error", err)
				}
			}
		}

		w.WriteHeader(http.StatusOK)
	}
}
