package api

import (
	"log"
	"net/http"

	"consultorio/internal/service"
)

type CalendarWebhookHandler struct {
	sync *service.SyncService
}

func NewCalendarWebhookHandler(sync *service.SyncService) *CalendarWebhookHandler {
	return &CalendarWebhookHandler{sync: sync}
}

// HandleNotification runs a sync cycle when the provider signals a change.
// The response is always 200: a non-2xx would put the provider into its own
// retry loop, and internal failures are recovered by the next cycle anyway.
func (h *CalendarWebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	state := r.Header.Get("X-Goog-Resource-State")
	if state == "sync" {
		// Initial ping after channel registration, nothing changed yet.
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.sync.Run(r.Context()); err != nil {
		log.Printf("Calendar webhook: sync cycle failed (channel %s): %v", r.Header.Get("X-Goog-Channel-ID"), err)
	}
	w.WriteHeader(http.StatusOK)
}
