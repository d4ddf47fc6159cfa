package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/scavengerbot/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Scavenger Bot API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Checks).Routes())

	r.Get("/webhook", handleWebhookVerify(logger, deps.VerifyToken))
	r.Post("/webhook", handleWebhookReceive(logger, deps.AppSecret, deps.Conversations))

	if deps.AdminTokenHash == "" {
		logger.Info("admin api disabled")
		return
	}

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(adminAuthMiddleware(deps.AdminTokenHash))
		r.Get("/catalog", handleAdminCatalog(deps.Catalog))
		r.Get("/events", handleEvents(deps.Broker))
		r.Get("/conversations/{senderID}", handleAdminGetConversation(logger, deps.Conversations))
		r.Delete("/conversations/{senderID}", handleAdminResetConversation(logger, deps.Conversations))
		r.Get("/conversations/{senderID}/events", handleEvents(deps.Broker))
	})
}
