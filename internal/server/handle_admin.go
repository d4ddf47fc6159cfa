package server

import (
	"cmp"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/scavengerbot/internal/hunt"
)

type CatalogLocation struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Coordinates hunt.Coordinate `json:"coordinates"`
	ClueCount   int             `json:"clueCount"`
}

type CatalogCity struct {
	City      string            `json:"city"`
	Locations []CatalogLocation `json:"locations"`
}

type CatalogResponse struct {
	Cities []CatalogCity `json:"cities"`
}

type ConversationResponse struct {
	SenderID string        `json:"senderId"`
	State    string        `json:"state"`
	Progress hunt.Progress `json:"progress"`
}

type conversationRequest struct {
	SenderID string `path:"senderID"`
}

// handleAdminCatalog lists the prize locations per city. Clue text is
// withheld; only the count is shown.
func handleAdminCatalog(catalog hunt.CityCatalog) http.HandlerFunc {
	resp := CatalogResponse{Cities: make([]CatalogCity, 0, len(catalog))}
	for city := range catalog {
		entry := CatalogCity{City: string(city)}
		for _, loc := range catalog.Locations(city) {
			entry.Locations = append(entry.Locations, CatalogLocation{
				ID:          loc.ID,
				Name:        loc.Name,
				Coordinates: loc.Coordinates,
				ClueCount:   len(loc.Clues),
			})
		}
		resp.Cities = append(resp.Cities, entry)
	}
	slices.SortFunc(resp.Cities, func(a, b CatalogCity) int {
		return cmp.Compare(a.City, b.City)
	})

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAdminGetConversation(logger *slog.Logger, conv Conversations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		senderID := chi.URLParam(r, "senderID")

		p, state, err := conv.Progress(r.Context(), senderID)
		if err != nil {
			logger.Error("loading conversation", "sender", senderID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, ConversationResponse{
			SenderID: senderID,
			State:    state.String(),
			Progress: p,
		})
	}
}

func handleAdminResetConversation(logger *slog.Logger, conv Conversations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		senderID := chi.URLParam(r, "senderID")

		if err := conv.Reset(r.Context(), senderID); err != nil {
			logger.Error("resetting conversation", "sender", senderID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("conversation reset by admin", "sender", senderID)
		w.WriteHeader(http.StatusNoContent)
	}
}
