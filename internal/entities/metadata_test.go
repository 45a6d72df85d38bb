package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataRoundTrip(t *testing.T) {
	pendingAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	notified := time.Date(2026, 3, 20, 11, 0, 0, 0, time.UTC)

	records := []Metadata{
		{},
		{Name: "Ana Pérez", Phone: "+34911222333", Email: "ana@example.com"},
		{
			Name:             "Luis Gómez",
			Phone:            "+34911000111",
			Email:            "luis@example.com",
			Symptoms:         "persistent headache",
			History:          "hypertension, no allergies",
			BookingUID:       "bk_8f2c",
			PendingAt:        &pendingAt,
			LastNotifiedTime: &notified,
			LastUpdatedBy:    "external-actor",
			UserRescheduled:  true,
		},
	}

	for _, r := range records {
		decoded := DecodeMetadata(EncodeMetadata(r))
		assert.Equal(t, r, decoded)
	}
}

func TestDecodeMetadataToleratesNoise(t *testing.T) {
	// Not every event description is ours: Available slots carry none, and
	// the doctor's own events can hold arbitrary text.
	inputs := []string{
		"",
		"   ",
		"call patient before visit",
		`{"name": "broken`,
		`[1,2,3]`,
	}
	for _, in := range inputs {
		assert.Equal(t, Metadata{}, DecodeMetadata(in), "input %q", in)
	}
}

func TestSummaryConvention(t *testing.T) {
	tests := []struct {
		summary string
		status  SlotStatus
		name    string
	}{
		{"Available", SlotAvailable, ""},
		{"PENDING: Ana Pérez", SlotPending, "Ana Pérez"},
		{"CONFIRMED: Luis Gómez", SlotConfirmed, "Luis Gómez"},
		{"Dentist appointment", SlotUnknown, ""},
		{"", SlotUnknown, ""},
	}
	for _, tc := range tests {
		status, name := ParseSummary(tc.summary)
		assert.Equal(t, tc.status, status, "summary %q", tc.summary)
		assert.Equal(t, tc.name, name, "summary %q", tc.summary)
	}

	assert.Equal(t, "PENDING: Ana", FormatSummary(SlotPending, "Ana"))
	assert.Equal(t, "CONFIRMED: Ana", FormatSummary(SlotConfirmed, "Ana"))
	assert.Equal(t, "Available", FormatSummary(SlotAvailable, ""))
}

func TestSlotFromEvent(t *testing.T) {
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	meta := Metadata{Name: "Ana", Phone: "+34911222333", Email: "ana@example.com"}

	ev := Event{
		ID:             "ev1",
		ProviderStatus: "confirmed",
		Summary:        "CONFIRMED: Ana",
		Description:    EncodeMetadata(meta),
		Start:          start,
		End:            start.Add(30 * time.Minute),
	}
	slot := SlotFromEvent(ev)
	require.Equal(t, SlotConfirmed, slot.Status)
	assert.Equal(t, "Ana", slot.PatientName)
	assert.Equal(t, meta, slot.Metadata)

	// A provider-side cancellation overrides whatever the summary says.
	ev.ProviderStatus = "cancelled"
	assert.Equal(t, SlotCancelled, SlotFromEvent(ev).Status)
}
