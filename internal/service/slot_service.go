package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"consultorio/internal/entities"
	apperrors "consultorio/internal/errors"
	"consultorio/internal/repository"
)

// SlotStore is the calendar provider seen as a blob store: events carry a
// label (summary) and a metadata text (description), nothing else of ours.
type SlotStore interface {
	ListWindow(ctx context.Context, from, to time.Time) (entities.EventPage, error)
	ListChanges(ctx context.Context, syncToken string) (entities.EventPage, error)
	Get(ctx context.Context, id string) (entities.Event, error)
	Patch(ctx context.Context, id, summary, description string) (entities.Event, error)
	Delete(ctx context.Context, id string) error
	Watch(ctx context.Context, callbackURL string) (string, error)
}

// SlotService owns the slot lifecycle: Available -> Pending -> Confirmed ->
// rescheduled or released. Every transition is a read-check-patch against
// provider-side state; the per-time-range lock narrows the window in which
// two callers can both read the same Available slot.
type SlotService struct {
	store    SlotStore
	locker   repository.Locker
	notifier Notifier
}

func NewSlotService(store SlotStore, locker repository.Locker, notifier Notifier) *SlotService {
	return &SlotService{store: store, locker: locker, notifier: notifier}
}

// ListAvailable returns the open slots in [from, to), for the booking
// calendar on the public site.
func (s *SlotService) ListAvailable(ctx context.Context, from, to time.Time) ([]entities.Slot, error) {
	page, err := s.store.ListWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var slots []entities.Slot
	for _, ev := range page.Items {
		slot := entities.SlotFromEvent(ev)
		if slot.Status == entities.SlotAvailable {
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// Reserve holds an Available slot for a patient while payment is collected.
func (s *SlotService) Reserve(ctx context.Context, slotID string, patient entities.PatientInfo) (*entities.Slot, error) {
	ev, err := s.store.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	slot := entities.SlotFromEvent(ev)
	if slot.Status != entities.SlotAvailable {
		return nil, fmt.Errorf("%w: slot %s is %s", apperrors.ErrSlotUnavailable, slotID, slot.Status)
	}

	var reserved *entities.Slot
	lockKey := slot.Start.UTC().Format(time.RFC3339)
	err = s.locker.WithSlotLock(ctx, lockKey, func(ctx context.Context) error {
		// Re-read under the lock; another caller may have won the race
		// between the first read and lock acquisition.
		ev, err := s.store.Get(ctx, slotID)
		if err != nil {
			return err
		}
		current := entities.SlotFromEvent(ev)
		if current.Status != entities.SlotAvailable {
			return fmt.Errorf("%w: slot %s is %s", apperrors.ErrSlotUnavailable, slotID, current.Status)
		}

		now := time.Now().UTC()
		meta := entities.Metadata{
			Name:       patient.Name,
			Phone:      patient.Phone,
			Email:      patient.Email,
			Symptoms:   patient.Symptoms,
			History:    patient.History,
			BookingUID: patient.BookingUID,
			PendingAt:  &now,
		}
		patched, err := s.store.Patch(ctx, slotID,
			entities.FormatSummary(entities.SlotPending, patient.Name),
			entities.EncodeMetadata(meta))
		if err != nil {
			return err
		}
		held := entities.SlotFromEvent(patched)
		reserved = &held
		return nil
	})
	if errors.Is(err, repository.ErrLockNotAcquired) {
		return nil, fmt.Errorf("%w: slot %s is being reserved", apperrors.ErrSlotUnavailable, slotID)
	}
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

// Confirm moves a Pending slot to Confirmed, merging the authoritative
// booking record over the provisional metadata, and dispatches the patient
// and doctor notifications. Notification failure never rolls back the
// transition.
func (s *SlotService) Confirm(ctx context.Context, slotID string, booking entities.BookingDetails) (*entities.Slot, error) {
	ev, err := s.store.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	slot := entities.SlotFromEvent(ev)
	if slot.Status != entities.SlotPending {
		return nil, fmt.Errorf("%w: cannot confirm slot %s in state %s", apperrors.ErrSlotUnavailable, slotID, slot.Status)
	}

	meta := mergeBooking(slot.Metadata, booking)
	meta.PendingAt = nil
	// Stamp the guard with this write: the change feed will echo the confirm
	// patch back, and an unstamped echo reads as a doctor-side move.
	start := slot.Start
	meta.LastNotifiedTime = &start
	patched, err := s.store.Patch(ctx, slotID,
		entities.FormatSummary(entities.SlotConfirmed, meta.Name),
		entities.EncodeMetadata(meta))
	if err != nil {
		return nil, err
	}

	confirmed := entities.SlotFromEvent(patched)
	if s.notifier != nil {
		s.notifier.BookingConfirmed(confirmed)
	}
	return &confirmed, nil
}

// Reschedule moves a Confirmed booking to a new Available slot. A lineage
// may be moved by the patient at most once. The new slot is confirmed before
// the old one is released: a crash in between leaves a double booking the
// doctor can see and fix, never a lost one.
func (s *SlotService) Reschedule(ctx context.Context, oldSlotID, newSlotID string) (*entities.Slot, error) {
	oldEv, err := s.store.Get(ctx, oldSlotID)
	if err != nil {
		return nil, err
	}
	oldSlot := entities.SlotFromEvent(oldEv)
	if oldSlot.Status != entities.SlotConfirmed {
		return nil, fmt.Errorf("%w: slot %s is %s, not confirmed", apperrors.ErrSlotUnavailable, oldSlotID, oldSlot.Status)
	}
	if oldSlot.Metadata.UserRescheduled {
		return nil, fmt.Errorf("%w: booking on slot %s", apperrors.ErrRescheduleAlreadyUsed, oldSlotID)
	}

	newEv, err := s.store.Get(ctx, newSlotID)
	if err != nil {
		return nil, err
	}
	newSlot := entities.SlotFromEvent(newEv)
	if newSlot.Status != entities.SlotAvailable {
		return nil, fmt.Errorf("%w: slot %s is %s", apperrors.ErrSlotUnavailable, newSlotID, newSlot.Status)
	}

	var moved *entities.Slot
	lockKey := newSlot.Start.UTC().Format(time.RFC3339)
	err = s.locker.WithSlotLock(ctx, lockKey, func(ctx context.Context) error {
		ev, err := s.store.Get(ctx, newSlotID)
		if err != nil {
			return err
		}
		current := entities.SlotFromEvent(ev)
		if current.Status != entities.SlotAvailable {
			return fmt.Errorf("%w: slot %s is %s", apperrors.ErrSlotUnavailable, newSlotID, current.Status)
		}

		meta := oldSlot.Metadata
		meta.UserRescheduled = true
		meta.LastUpdatedBy = "system"
		start := current.Start
		meta.LastNotifiedTime = &start

		patched, err := s.store.Patch(ctx, newSlotID,
			entities.FormatSummary(entities.SlotConfirmed, meta.Name),
			entities.EncodeMetadata(meta))
		if err != nil {
			return err
		}
		confirmed := entities.SlotFromEvent(patched)
		moved = &confirmed
		return nil
	})
	if errors.Is(err, repository.ErrLockNotAcquired) {
		return nil, fmt.Errorf("%w: slot %s is being reserved", apperrors.ErrSlotUnavailable, newSlotID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Release(ctx, oldSlotID); err != nil {
		log.Printf("ALERT: reschedule moved booking to %s but releasing old slot %s failed, needs manual reconciliation: %v", newSlotID, oldSlotID, err)
	}
	return moved, nil
}

// Release returns a slot to inventory: Available label, metadata cleared.
func (s *SlotService) Release(ctx context.Context, slotID string) error {
	_, err := s.store.Patch(ctx, slotID, entities.FormatSummary(entities.SlotAvailable, ""), "")
	return err
}

func mergeBooking(provisional entities.Metadata, booking entities.BookingDetails) entities.Metadata {
	merged := provisional
	if booking.AttendeeName != "" {
		merged.Name = booking.AttendeeName
	}
	if booking.AttendeeEmail != "" {
		merged.Email = booking.AttendeeEmail
	}
	if booking.AttendeePhone != "" {
		merged.Phone = booking.AttendeePhone
	}
	if booking.Symptoms != "" {
		merged.Symptoms = booking.Symptoms
	}
	if booking.History != "" {
		merged.History = booking.History
	}
	if booking.UID != "" {
		merged.BookingUID = booking.UID
	}
	return merged
}
