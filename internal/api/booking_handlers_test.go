package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consultorio/internal/auth"
	"consultorio/internal/entities"
	"consultorio/internal/service"
)

func newBookingRouter(store *stubStore, checkout *stubCheckout, tokens *auth.RescheduleTokens) *mux.Router {
	slots := service.NewSlotService(store, passLocker{}, nil)
	handler := NewBookingHandler(slots, checkout, tokens, "ConsultaMed", 5000, "eur")

	r := mux.NewRouter()
	r.HandleFunc("/api/slots", handler.ListSlots).Methods("GET")
	r.HandleFunc("/api/slots/{id}/reserve", handler.Reserve).Methods("POST")
	r.HandleFunc("/api/reschedule", handler.Reschedule).Methods("POST")
	r.HandleFunc("/api/reschedule/slots", handler.RescheduleSlots).Methods("GET")
	return r
}

func testTokens() *auth.RescheduleTokens {
	return auth.NewRescheduleTokens("test-secret", time.Hour)
}

func TestListSlotsReturnsOpenInventory(t *testing.T) {
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	store := newStubStore(
		availableEvent("free", start),
		confirmedEvent("busy", start.Add(time.Hour), entities.Metadata{Name: "Ana"}),
	)
	router := newBookingRouter(store, &stubCheckout{}, testTokens())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/slots", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Slots []entities.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, "free", resp.Slots[0].ID)
}

func TestReserveReturnsCheckoutURL(t *testing.T) {
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	store := newStubStore(availableEvent("ev1", start))
	checkout := &stubCheckout{url: "https://checkout.example.com/cs_1", id: "cs_1"}
	router := newBookingRouter(store, checkout, testTokens())

	body, _ := json.Marshal(ReserveRequest{
		Name:       "Ana Pérez",
		Phone:      "+34911222333",
		Email:      "ana@example.com",
		Symptoms:   "migraine",
		BookingUID: "bk_123",
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/slots/ev1/reserve", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp ReserveResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ev1", resp.SlotID)
	assert.Equal(t, "https://checkout.example.com/cs_1", resp.CheckoutURL)
	assert.Equal(t, "cs_1", resp.SessionID)

	// Correlation metadata rides on the checkout session for the webhook.
	assert.Equal(t, map[string]string{"event_id": "ev1", "booking_uid": "bk_123"}, checkout.metadata)
	assert.Equal(t, "PENDING: Ana Pérez", store.events["ev1"].Summary)
}

func TestReserveValidatesContactFields(t *testing.T) {
	store := newStubStore(availableEvent("ev1", time.Now().Add(24*time.Hour).UTC()))
	router := newBookingRouter(store, &stubCheckout{}, testTokens())

	body, _ := json.Marshal(ReserveRequest{Name: "Ana"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/slots/ev1/reserve", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, store.calls)
}

func TestReserveConflictsOnTakenSlot(t *testing.T) {
	start := time.Now().Add(24 * time.Hour).UTC()
	store := newStubStore(pendingEvent("ev1", start, entities.Metadata{Name: "Luis"}))
	router := newBookingRouter(store, &stubCheckout{}, testTokens())

	body, _ := json.Marshal(ReserveRequest{Name: "Ana", Phone: "+34911222333", Email: "ana@example.com"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/slots/ev1/reserve", bytes.NewReader(body)))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestReserveReleasesHoldWhenCheckoutFails(t *testing.T) {
	start := time.Now().Add(24 * time.Hour).UTC()
	store := newStubStore(availableEvent("ev1", start))
	checkout := &stubCheckout{err: fmt.Errorf("stripe is down")}
	router := newBookingRouter(store, checkout, testTokens())

	body, _ := json.Marshal(ReserveRequest{Name: "Ana", Phone: "+34911222333", Email: "ana@example.com"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/slots/ev1/reserve", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "Available", store.events["ev1"].Summary, "hold released when checkout cannot be created")
}

func TestRescheduleRejectsInvalidToken(t *testing.T) {
	store := newStubStore()
	router := newBookingRouter(store, &stubCheckout{}, testTokens())

	body, _ := json.Marshal(RescheduleRequest{Token: "not-a-token", NewSlotID: "new"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/reschedule", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, store.calls)
}

func TestRescheduleMovesBooking(t *testing.T) {
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	newStart := start.Add(48 * time.Hour)
	meta := entities.Metadata{Name: "Ana", Phone: "+34911222333", Email: "ana@example.com"}
	store := newStubStore(
		confirmedEvent("old", start, meta),
		availableEvent("new", newStart),
	)
	tokens := testTokens()
	router := newBookingRouter(store, &stubCheckout{}, tokens)

	token, err := tokens.Issue("old")
	require.NoError(t, err)

	body, _ := json.Marshal(RescheduleRequest{Token: token, NewSlotID: "new"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/reschedule", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	newSlot := entities.SlotFromEvent(store.events["new"])
	assert.Equal(t, entities.SlotConfirmed, newSlot.Status)
	assert.True(t, newSlot.Metadata.UserRescheduled)
	assert.Equal(t, "Available", store.events["old"].Summary)
}

func TestRescheduleIsSingleUse(t *testing.T) {
	start := time.Now().Add(24 * time.Hour).UTC()
	meta := entities.Metadata{Name: "Ana", Phone: "+34911222333", Email: "ana@example.com", UserRescheduled: true}
	store := newStubStore(
		confirmedEvent("old", start, meta),
		availableEvent("new", start.Add(48*time.Hour)),
	)
	tokens := testTokens()
	router := newBookingRouter(store, &stubCheckout{}, tokens)

	token, err := tokens.Issue("old")
	require.NoError(t, err)

	body, _ := json.Marshal(RescheduleRequest{Token: token, NewSlotID: "new"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/reschedule", bytes.NewReader(body)))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "Available", store.events["new"].Summary, "target slot untouched")
}

func TestRescheduleSlotsRequiresToken(t *testing.T) {
	store := newStubStore(availableEvent("free", time.Now().Add(24*time.Hour).UTC()))
	tokens := testTokens()
	router := newBookingRouter(store, &stubCheckout{}, tokens)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reschedule/slots", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := tokens.Issue("old")
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reschedule/slots?token="+token, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
