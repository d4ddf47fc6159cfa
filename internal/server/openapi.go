package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/scavengerbot/internal/handler/health"
	"github.com/playperu/scavengerbot/internal/messenger"
)

type webhookVerifyRequest struct {
	Mode        string `query:"hub.mode" enum:"subscribe"`
	VerifyToken string `query:"hub.verify_token"`
	Challenge   string `query:"hub.challenge"`
}

type webhookReceiveRequest struct {
	Signature string            `header:"X-Hub-Signature" description:"sha1=<hex HMAC of the body keyed with the app secret>"`
	Object    string            `json:"object" enum:"page"`
	Entry     []messenger.Entry `json:"entry"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Scavenger Bot API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Messenger webhook and admin API for the scavenger hunt bot.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health of the progress store and the outbound queue.")
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /webhook
	verify, _ := r.NewOperationContext(http.MethodGet, "/webhook")
	verify.SetSummary("Webhook handshake")
	verify.SetDescription("Echoes hub.challenge when hub.verify_token matches the configured token.")
	verify.AddReqStructure(webhookVerifyRequest{})
	verify.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType("text/plain"))
	verify.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(verify)

	// POST /webhook
	receive, _ := r.NewOperationContext(http.MethodPost, "/webhook")
	receive.SetSummary("Receive messaging events")
	receive.SetDescription("Signed page callback. Each messaging event advances the sender's hunt.")
	receive.AddReqStructure(webhookReceiveRequest{})
	receive.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	receive.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	receive.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	receive.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(receive)

	// GET /api/admin/catalog
	getCatalog, _ := r.NewOperationContext(http.MethodGet, "/api/admin/catalog")
	getCatalog.SetSummary("Prize catalog")
	getCatalog.SetDescription("Lists prize locations per city with clue counts. Requires admin token.")
	getCatalog.AddRespStructure(CatalogResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getCatalog.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getCatalog)

	// GET /api/admin/events
	allEvents, _ := r.NewOperationContext(http.MethodGet, "/api/admin/events")
	allEvents.SetSummary("Transition stream")
	allEvents.SetDescription("Server-Sent Events for every conversation transition. Pass token as query parameter.")
	allEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType("text/event-stream"))
	allEvents.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(allEvents)

	// GET /api/admin/conversations/{senderID}
	getConv, _ := r.NewOperationContext(http.MethodGet, "/api/admin/conversations/{senderID}")
	getConv.SetSummary("Get conversation")
	getConv.SetDescription("Returns a sender's stored progress and current stage. Requires admin token.")
	getConv.AddReqStructure(conversationRequest{})
	getConv.AddRespStructure(ConversationResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getConv.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getConv)

	// DELETE /api/admin/conversations/{senderID}
	resetConv, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/conversations/{senderID}")
	resetConv.SetSummary("Reset conversation")
	resetConv.SetDescription("Clears a sender's progress without messaging them. Requires admin token.")
	resetConv.AddReqStructure(conversationRequest{})
	resetConv.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	resetConv.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(resetConv)

	// GET /api/admin/conversations/{senderID}/events
	convEvents, _ := r.NewOperationContext(http.MethodGet, "/api/admin/conversations/{senderID}/events")
	convEvents.SetSummary("Conversation transition stream")
	convEvents.SetDescription("Server-Sent Events for one sender's transitions. Pass token as query parameter.")
	convEvents.AddReqStructure(conversationRequest{})
	convEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType("text/event-stream"))
	convEvents.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(convEvents)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
