package service

import (
	"context"
	"log"
	"time"

	"consultorio/internal/entities"
)

// JobService holds the cron-driven maintenance work.
type JobService struct {
	slots   *SlotService
	holdTTL time.Duration
	window  time.Duration
}

func NewJobService(slots *SlotService, holdTTL, window time.Duration) *JobService {
	return &JobService{slots: slots, holdTTL: holdTTL, window: window}
}

// ReleaseStalePendingHolds returns abandoned checkouts to inventory: any
// Pending slot whose hold is older than the TTL goes back to Available.
func (j *JobService) ReleaseStalePendingHolds(ctx context.Context) (int, error) {
	log.Println("Cron Job: checking for stale pending holds...")

	now := time.Now().UTC()
	page, err := j.slots.store.ListWindow(ctx, now, now.Add(j.window))
	if err != nil {
		return 0, err
	}

	released := 0
	for _, ev := range page.Items {
		slot := entities.SlotFromEvent(ev)
		if slot.Status != entities.SlotPending {
			continue
		}
		if slot.Metadata.PendingAt == nil || now.Sub(*slot.Metadata.PendingAt) <= j.holdTTL {
			continue
		}
		if err := j.slots.Release(ctx, slot.ID); err != nil {
			log.Printf("Cron Job: releasing stale hold %s failed: %v", slot.ID, err)
			continue
		}
		released++
	}

	if released > 0 {
		log.Printf("Cron Job: released %d stale pending holds", released)
	}
	return released, nil
}
