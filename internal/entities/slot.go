package entities

import "time"

// SlotStatus is the booking state encoded in the event summary. The calendar
// provider has no native status field, so the summary doubles as the label.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotPending   SlotStatus = "pending"
	SlotConfirmed SlotStatus = "confirmed"
	SlotCancelled SlotStatus = "cancelled"
	// SlotUnknown marks events whose summary matches no label convention:
	// the doctor's own appointments share the calendar with bookable slots.
	SlotUnknown SlotStatus = ""
)

// Event is a raw calendar event as the provider returns it. ProviderStatus is
// the provider's own lifecycle field ("confirmed"/"cancelled"), unrelated to
// the booking status carried in the summary.
type Event struct {
	ID             string
	ProviderStatus string
	Summary        string
	Description    string
	Start          time.Time
	End            time.Time
	Updated        time.Time
}

// EventPage is one page of events plus the cursor for the next incremental
// listing.
type EventPage struct {
	Items         []Event
	NextSyncToken string
}

// Slot is one bookable calendar event with its label and metadata decoded.
type Slot struct {
	ID          string     `json:"id"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Status      SlotStatus `json:"status"`
	PatientName string     `json:"patient_name,omitempty"`
	Metadata    Metadata   `json:"metadata,omitempty"`
}

// SlotFromEvent decodes an event into a Slot. An event the provider has
// cancelled is Cancelled regardless of its summary.
func SlotFromEvent(ev Event) Slot {
	status, name := ParseSummary(ev.Summary)
	if ev.ProviderStatus == "cancelled" {
		status = SlotCancelled
	}
	return Slot{
		ID:          ev.ID,
		Start:       ev.Start,
		End:         ev.End,
		Status:      status,
		PatientName: name,
		Metadata:    DecodeMetadata(ev.Description),
	}
}

// PatientInfo is what the booking form submits when reserving a slot.
type PatientInfo struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Symptoms   string `json:"symptoms"`
	History    string `json:"history"`
	BookingUID string `json:"booking_uid"`
}

// BookingDetails is the authoritative record fetched from the booking API at
// payment-confirmation time. Its fields override the provisional metadata
// written at reserve time.
type BookingDetails struct {
	UID           string
	AttendeeName  string
	AttendeeEmail string
	AttendeePhone string
	Symptoms      string
	History       string
	StartTime     time.Time
	Location      string
}
