package api

import (
	"encoding/json"
	"log"
	"net/http"

	apperrors "consultorio/internal/errors"
)

type ReserveRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Symptoms   string `json:"symptoms"`
	History    string `json:"history"`
	BookingUID string `json:"booking_uid"`
}

type ReserveResponse struct {
	SlotID      string `json:"slot_id"`
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

type RescheduleRequest struct {
	Token     string `json:"token"`
	NewSlotID string `json:"new_slot_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	httpErr := apperrors.FromError(err)
	writeJSON(w, httpErr.Code, errorResponse{Error: httpErr.Message})
}
