package entities

import (
	"encoding/json"
	"strings"
	"time"
)

// Summary labels. The status prefix is the only state marker the calendar UI
// shows the doctor, so the strings are part of the external contract.
const (
	availableLabel  = "Available"
	pendingPrefix   = "PENDING: "
	confirmedPrefix = "CONFIRMED: "
)

// Metadata is the booking record serialized into the event description.
// Available slots carry none; the description is then empty or free text.
type Metadata struct {
	Name             string     `json:"name,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Email            string     `json:"email,omitempty"`
	Symptoms         string     `json:"symptoms,omitempty"`
	History          string     `json:"history,omitempty"`
	BookingUID       string     `json:"booking_uid,omitempty"`
	PendingAt        *time.Time `json:"pending_at,omitempty"`
	LastNotifiedTime *time.Time `json:"last_notified_time,omitempty"`
	LastUpdatedBy    string     `json:"last_updated_by,omitempty"`
	UserRescheduled  bool       `json:"user_rescheduled,omitempty"`
}

// IsZero reports whether the record carries no booking data at all.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// EncodeMetadata serializes a record for the event description field.
func EncodeMetadata(m Metadata) string {
	b, err := json.Marshal(m)
	if err != nil {
		// Metadata holds only strings, bools and times; Marshal cannot fail.
		return "{}"
	}
	return string(b)
}

// DecodeMetadata parses a description field. Malformed or empty input yields
// the zero record: the synchronizer walks the provider's full event stream
// and must not halt on descriptions it does not own.
func DecodeMetadata(text string) Metadata {
	text = strings.TrimSpace(text)
	if text == "" || !strings.HasPrefix(text, "{") {
		return Metadata{}
	}
	var m Metadata
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return Metadata{}
	}
	return m
}

// FormatSummary renders the label for a status. Cancelled slots keep no
// label of ours; the provider's own status field marks them.
func FormatSummary(status SlotStatus, patientName string) string {
	switch status {
	case SlotPending:
		return pendingPrefix + patientName
	case SlotConfirmed:
		return confirmedPrefix + patientName
	default:
		return availableLabel
	}
}

// ParseSummary extracts the status and patient name from an event summary.
// Summaries that match no convention belong to foreign events and map to
// SlotUnknown so callers skip them.
func ParseSummary(summary string) (SlotStatus, string) {
	summary = strings.TrimSpace(summary)
	switch {
	case summary == availableLabel:
		return SlotAvailable, ""
	case strings.HasPrefix(summary, pendingPrefix):
		return SlotPending, strings.TrimSpace(strings.TrimPrefix(summary, pendingPrefix))
	case strings.HasPrefix(summary, confirmedPrefix):
		return SlotConfirmed, strings.TrimSpace(strings.TrimPrefix(summary, confirmedPrefix))
	default:
		return SlotUnknown, ""
	}
}
