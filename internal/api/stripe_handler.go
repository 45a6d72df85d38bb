package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"consultorio/internal/entities"
	apperrors "consultorio/internal/errors"
	"consultorio/internal/service"
)

// BookingAPI is the external booking system holding the authoritative
// attendee record created by the booking widget.
type BookingAPI interface {
	GetBooking(ctx context.Context, uid string) (entities.BookingDetails, error)
	ConfirmBooking(ctx context.Context, uid string) error
}

// SessionResolver looks up the checkout session a refunded charge belongs to.
type SessionResolver interface {
	GetSessionByPaymentIntentID(paymentIntentID string) (*stripe.CheckoutSession, error)
}

type StripeWebhookHandler struct {
	webhookSecret string
	slots         *service.SlotService
	bookings      BookingAPI
	sessions      SessionResolver
}

func NewStripeWebhookHandler(webhookSecret string, slots *service.SlotService, bookings BookingAPI, sessions SessionResolver) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		webhookSecret: webhookSecret,
		slots:         slots,
		bookings:      bookings,
		sessions:      sessions,
	}
}

// HandleWebhook processes payment events. A bad signature is rejected before
// anything runs; once the signature checks out the handler always acks with
// 200, because Stripe's retries would only amplify duplicate notification
// attempts. Failures past that point are logged for manual reconciliation.
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading body: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.webhookSecret)
	if err != nil {
		// 400, not FromError's 401: Stripe treats 400 as a signature problem.
		err = fmt.Errorf("%w: %v", apperrors.ErrInvalidSignature, err)
		log.Printf("Webhook rejected: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Printf("Error parsing checkout.session: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.handleCheckoutCompleted(r.Context(), &sess)

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			log.Printf("Error parsing charge: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.handleChargeRefunded(r.Context(), &charge)

	default:
		log.Printf("Unhandled event type: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *StripeWebhookHandler) handleCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) {
	eventID := sess.Metadata["event_id"]
	bookingUID := sess.Metadata["booking_uid"]
	if eventID == "" || bookingUID == "" {
		log.Printf("MANUAL RECONCILIATION: session %s completed without correlation metadata (event_id=%q booking_uid=%q)", sess.ID, eventID, bookingUID)
		return
	}

	// Payment is captured, but the slot is only confirmed with the
	// authoritative booking record; a booking the API cannot return means
	// the payment stays captured-but-unconfirmed until someone looks.
	booking, err := h.bookings.GetBooking(ctx, bookingUID)
	if err != nil {
		log.Printf("MANUAL RECONCILIATION: session %s paid, fetching booking %s failed: %v", sess.ID, bookingUID, err)
		return
	}
	if err := h.bookings.ConfirmBooking(ctx, bookingUID); err != nil {
		log.Printf("MANUAL RECONCILIATION: session %s paid, confirming booking %s failed: %v", sess.ID, bookingUID, err)
		return
	}

	if _, err := h.slots.Confirm(ctx, eventID, booking); err != nil {
		log.Printf("MANUAL RECONCILIATION: session %s paid, confirming slot %s failed: %v", sess.ID, eventID, err)
	}
}

func (h *StripeWebhookHandler) handleChargeRefunded(ctx context.Context, charge *stripe.Charge) {
	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		return
	}
	sess, err := h.sessions.GetSessionByPaymentIntentID(charge.PaymentIntent.ID)
	if err != nil {
		log.Printf("No session found for PaymentIntent %s: %v", charge.PaymentIntent.ID, err)
		return
	}
	eventID := sess.Metadata["event_id"]
	if eventID == "" {
		log.Printf("MANUAL RECONCILIATION: refunded session %s has no event_id metadata", sess.ID)
		return
	}
	if err := h.slots.Release(ctx, eventID); err != nil {
		log.Printf("MANUAL RECONCILIATION: refund for session %s, releasing slot %s failed: %v", sess.ID, eventID, err)
		return
	}
	log.Printf("Refund processed: slot %s released back to inventory", eventID)
}
