package bookingapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "consultorio/internal/errors"
)

func TestGetBooking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/bk_123", r.URL.Path)
		assert.Equal(t, "Bearer api-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"booking": map[string]any{
				"uid":       "bk_123",
				"startTime": "2026-04-01T10:00:00Z",
				"location":  "Video call",
				"attendees": []map[string]string{
					{"name": "Ana Pérez", "email": "ana@example.com", "phoneNumber": "+34911222333"},
				},
				"responses": map[string]string{
					"symptoms": "migraine, light sensitivity",
					"history":  "no prior conditions",
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "api-key")
	booking, err := client.GetBooking(context.Background(), "bk_123")
	require.NoError(t, err)

	assert.Equal(t, "bk_123", booking.UID)
	assert.Equal(t, "Ana Pérez", booking.AttendeeName)
	assert.Equal(t, "ana@example.com", booking.AttendeeEmail)
	assert.Equal(t, "+34911222333", booking.AttendeePhone)
	assert.Equal(t, "migraine, light sensitivity", booking.Symptoms)
	assert.Equal(t, "no prior conditions", booking.History)
	assert.Equal(t, time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC), booking.StartTime)
	assert.Equal(t, "Video call", booking.Location)
}

func TestGetBookingNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "api-key")
	_, err := client.GetBooking(context.Background(), "bk_missing")
	assert.ErrorIs(t, err, apperrors.ErrBookingNotFound)
}

func TestConfirmBooking(t *testing.T) {
	var confirmed string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		confirmed = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "api-key")
	require.NoError(t, client.ConfirmBooking(context.Background(), "bk_123"))
	assert.Equal(t, "/bookings/bk_123/confirm", confirmed)
}

func TestConfirmBookingRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "booking already cancelled", http.StatusConflict)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "api-key")
	err := client.ConfirmBooking(context.Background(), "bk_123")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamRejected)
}
