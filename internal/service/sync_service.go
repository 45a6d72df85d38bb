package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"consultorio/internal/entities"
	apperrors "consultorio/internal/errors"
)

// CursorStore persists the change-feed position between sync runs.
type CursorStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// SyncService consumes the calendar's incremental change feed and reconciles
// out-of-band moves the doctor makes directly in the calendar UI: it cleans
// up the stale Available duplicate a drag-and-move leaves behind, stamps the
// slot metadata, and tells the patient about the new time.
type SyncService struct {
	store    SlotStore
	cursors  CursorStore
	notifier Notifier
	window   time.Duration
}

func NewSyncService(store SlotStore, cursors CursorStore, notifier Notifier, window time.Duration) *SyncService {
	return &SyncService{store: store, cursors: cursors, notifier: notifier, window: window}
}

// Seed performs a full listing and stores the resulting sync token as the
// baseline cursor. Used at setup time, and after the provider expires a
// cursor.
func (s *SyncService) Seed(ctx context.Context) error {
	now := time.Now().UTC()
	page, err := s.store.ListWindow(ctx, now, now.Add(s.window))
	if err != nil {
		return fmt.Errorf("seed sync cursor: %w", err)
	}
	if page.NextSyncToken == "" {
		return fmt.Errorf("seed sync cursor: provider returned no sync token")
	}
	return s.cursors.Set(ctx, page.NextSyncToken)
}

// Run executes one sync cycle. The provider redelivers unacknowledged
// changes at least once; idempotency comes from the lastNotifiedTime guard,
// not from exactly-once delivery. Per-item failures are logged and never
// abort the batch.
func (s *SyncService) Run(ctx context.Context) error {
	cursor, err := s.cursors.Get(ctx)
	if err != nil {
		return err
	}

	var page entities.EventPage
	if cursor == "" {
		now := time.Now().UTC()
		page, err = s.store.ListWindow(ctx, now, now.Add(s.window))
	} else {
		page, err = s.store.ListChanges(ctx, cursor)
	}
	if errors.Is(err, apperrors.ErrCursorExpired) {
		// Nothing is safely resumable without a baseline; the next run
		// starts from a full listing.
		log.Printf("Sync: cursor expired, clearing; next run will re-baseline")
		if clearErr := s.cursors.Clear(ctx); clearErr != nil {
			return clearErr
		}
		return nil
	}
	if err != nil {
		return err
	}

	// Advance the cursor before touching any item. A crash mid-batch then
	// costs at most one round of redeliveries, not an endless loop.
	if page.NextSyncToken != "" {
		if err := s.cursors.Set(ctx, page.NextSyncToken); err != nil {
			return err
		}
	} else if cursor != "" {
		log.Printf("Sync: provider returned no next sync token, keeping cursor %q", cursor)
	}

	for _, ev := range page.Items {
		if err := s.processChange(ctx, ev); err != nil {
			log.Printf("Sync: processing event %s failed: %v", ev.ID, err)
		}
	}
	return nil
}

func (s *SyncService) processChange(ctx context.Context, ev entities.Event) error {
	if ev.ProviderStatus == "cancelled" {
		return nil
	}
	slot := entities.SlotFromEvent(ev)
	// Only confirmed bookings warrant a patient-facing move notice.
	if slot.Status != entities.SlotConfirmed || slot.Metadata.IsZero() {
		return nil
	}
	// Anti-loop guard: a change whose start we already stamped is an echo of
	// our own write or a duplicate delivery.
	if slot.Metadata.LastNotifiedTime != nil && slot.Metadata.LastNotifiedTime.Equal(slot.Start) {
		return nil
	}

	s.cleanupDuplicate(ctx, slot)

	meta := slot.Metadata
	start := slot.Start
	meta.LastNotifiedTime = &start
	meta.LastUpdatedBy = "external-actor"

	// The guard must be durable before the notification goes out: a crash in
	// between loses a message, never storms the patient.
	patched, err := s.store.Patch(ctx, slot.ID,
		entities.FormatSummary(entities.SlotConfirmed, meta.Name),
		entities.EncodeMetadata(meta))
	if err != nil {
		return fmt.Errorf("stamp moved slot: %w", err)
	}

	if s.notifier != nil {
		s.notifier.SlotMoved(entities.SlotFromEvent(patched))
	}
	return nil
}

// cleanupDuplicate removes the surplus Available slot a provider-side move
// leaves in the confirmed slot's new window. Without it an Available and a
// Confirmed slot coexist for the same time range.
func (s *SyncService) cleanupDuplicate(ctx context.Context, slot entities.Slot) {
	page, err := s.store.ListWindow(ctx, slot.Start, slot.End)
	if err != nil {
		log.Printf("Sync: duplicate scan for slot %s failed: %v", slot.ID, err)
		return
	}
	for _, ev := range page.Items {
		if ev.ID == slot.ID || ev.ProviderStatus == "cancelled" {
			continue
		}
		if status, _ := entities.ParseSummary(ev.Summary); status != entities.SlotAvailable {
			continue
		}
		if err := s.store.Delete(ctx, ev.ID); err != nil {
			log.Printf("Sync: deleting duplicate slot %s failed: %v", ev.ID, err)
			continue
		}
		log.Printf("Sync: deleted duplicate available slot %s overlapping %s", ev.ID, slot.ID)
	}
}
