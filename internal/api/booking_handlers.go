package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"consultorio/internal/auth"
	"consultorio/internal/entities"
	apperrors "consultorio/internal/errors"
	"consultorio/internal/service"
)

// CheckoutCreator shapes the slice of StripeService the booking flow needs.
type CheckoutCreator interface {
	CreateCheckoutSession(amount int64, currency, description, customerEmail string, metadata map[string]string) (string, string, error)
}

type BookingHandler struct {
	slots      *service.SlotService
	checkout   CheckoutCreator
	tokens     *auth.RescheduleTokens
	clinicName string
	price      int64
	currency   string
}

func NewBookingHandler(slots *service.SlotService, checkout CheckoutCreator, tokens *auth.RescheduleTokens, clinicName string, price int64, currency string) *BookingHandler {
	return &BookingHandler{
		slots:      slots,
		checkout:   checkout,
		tokens:     tokens,
		clinicName: clinicName,
		price:      price,
		currency:   currency,
	}
}

// ListSlots returns the open slots for the public booking calendar.
func (h *BookingHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	slots, err := h.slots.ListAvailable(r.Context(), from, to)
	if err != nil {
		log.Printf("Error listing available slots: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// Reserve holds a slot and returns the checkout URL that completes the
// booking. The hold is released if the checkout session cannot be created.
func (h *BookingHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	slotID := mux.Vars(r)["id"]

	var req ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}
	if req.Name == "" || req.Phone == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name, phone and email are required"})
		return
	}

	patient := entities.PatientInfo{
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		Symptoms:   req.Symptoms,
		History:    req.History,
		BookingUID: req.BookingUID,
	}
	slot, err := h.slots.Reserve(r.Context(), slotID, patient)
	if err != nil {
		log.Printf("Error reserving slot %s: %v", slotID, err)
		writeError(w, err)
		return
	}

	description := fmt.Sprintf("%s consultation on %s", h.clinicName, slot.Start.Format("02 Jan 2006 15:04"))
	checkoutURL, sessionID, err := h.checkout.CreateCheckoutSession(h.price, h.currency, description, req.Email, map[string]string{
		"event_id":    slot.ID,
		"booking_uid": req.BookingUID,
	})
	if err != nil {
		log.Printf("Error creating checkout session for slot %s: %v", slotID, err)
		if releaseErr := h.slots.Release(r.Context(), slotID); releaseErr != nil {
			log.Printf("ALERT: releasing slot %s after checkout failure failed, needs manual reconciliation: %v", slotID, releaseErr)
		}
		writeError(w, fmt.Errorf("%w: create checkout session: %v", apperrors.ErrUpstreamRejected, err))
		return
	}

	writeJSON(w, http.StatusOK, ReserveResponse{
		SlotID:      slot.ID,
		CheckoutURL: checkoutURL,
		SessionID:   sessionID,
	})
}

// Reschedule moves a confirmed booking to a new slot through the single-use
// link from the confirmation email. The patient initiated the move, so no
// move notice is sent.
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}
	if req.Token == "" || req.NewSlotID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "token and new_slot_id are required"})
		return
	}

	originalSlotID, err := h.tokens.Verify(req.Token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired reschedule link"})
		return
	}

	slot, err := h.slots.Reschedule(r.Context(), originalSlotID, req.NewSlotID)
	if err != nil {
		log.Printf("Error rescheduling %s -> %s: %v", originalSlotID, req.NewSlotID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slot": slot, "message": "Appointment rescheduled"})
}

// RescheduleSlots lists the open slots the reschedule picker can move to,
// gated by the same link token.
func (h *BookingHandler) RescheduleSlots(w http.ResponseWriter, r *http.Request) {
	if _, err := h.tokens.Verify(r.URL.Query().Get("token")); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired reschedule link"})
		return
	}
	from, to, err := parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	slots, err := h.slots.ListAvailable(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	from := time.Now().UTC()
	to := from.Add(14 * 24 * time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'from' timestamp")
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'to' timestamp")
		}
		to = t
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("'to' must be after 'from'")
	}
	return from, to, nil
}
