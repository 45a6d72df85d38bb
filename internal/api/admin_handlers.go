package api

import (
	"log"
	"net/http"

	"consultorio/internal/service"
)

type AdminHandler struct {
	store       service.SlotStore
	sync        *service.SyncService
	callbackURL string
}

func NewAdminHandler(store service.SlotStore, sync *service.SyncService, callbackURL string) *AdminHandler {
	return &AdminHandler{store: store, sync: sync, callbackURL: callbackURL}
}

// Setup registers the change-feed push channel and seeds the sync cursor
// from a full listing. Safe to call again: the provider replaces the channel
// and the cursor is simply re-baselined.
func (h *AdminHandler) Setup(w http.ResponseWriter, r *http.Request) {
	channelID, err := h.store.Watch(r.Context(), h.callbackURL)
	if err != nil {
		log.Printf("Admin setup: watch registration failed: %v", err)
		writeError(w, err)
		return
	}

	if err := h.sync.Seed(r.Context()); err != nil {
		log.Printf("Admin setup: cursor seeding failed: %v", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"channel_id": channelID,
		"message":    "Change feed subscription registered and cursor seeded",
	})
}

// TriggerSync runs one sync cycle on demand.
func (h *AdminHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.Run(r.Context()); err != nil {
		log.Printf("Admin sync: cycle failed: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sync cycle completed"})
}
