package api

import (
	"context"
	"fmt"
	"time"

	"consultorio/internal/entities"
)

// stubStore is an in-memory service.SlotStore tracking calls, so webhook
// tests can assert that rejected requests touch the calendar zero times.
type stubStore struct {
	events    map[string]entities.Event
	syncToken string
	calls     int
	patches   int
	watchID   string
}

func newStubStore(events ...entities.Event) *stubStore {
	s := &stubStore{events: map[string]entities.Event{}, syncToken: "tok-1", watchID: "chan-1"}
	for _, ev := range events {
		s.events[ev.ID] = ev
	}
	return s
}

func (s *stubStore) ListWindow(ctx context.Context, from, to time.Time) (entities.EventPage, error) {
	s.calls++
	page := entities.EventPage{NextSyncToken: s.syncToken}
	for _, ev := range s.events {
		if !ev.Start.Before(from) && ev.Start.Before(to) {
			page.Items = append(page.Items, ev)
		}
	}
	return page, nil
}

func (s *stubStore) ListChanges(ctx context.Context, syncToken string) (entities.EventPage, error) {
	s.calls++
	return entities.EventPage{NextSyncToken: s.syncToken}, nil
}

func (s *stubStore) Get(ctx context.Context, id string) (entities.Event, error) {
	s.calls++
	ev, ok := s.events[id]
	if !ok {
		return entities.Event{}, fmt.Errorf("event %s not found", id)
	}
	return ev, nil
}

func (s *stubStore) Patch(ctx context.Context, id, summary, description string) (entities.Event, error) {
	s.calls++
	ev, ok := s.events[id]
	if !ok {
		return entities.Event{}, fmt.Errorf("event %s not found", id)
	}
	ev.Summary = summary
	ev.Description = description
	s.events[id] = ev
	s.patches++
	return ev, nil
}

func (s *stubStore) Delete(ctx context.Context, id string) error {
	s.calls++
	delete(s.events, id)
	return nil
}

func (s *stubStore) Watch(ctx context.Context, callbackURL string) (string, error) {
	s.calls++
	return s.watchID, nil
}

type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, key string, fn func(context.Context) error) error {
	return fn(ctx)
}

type stubBookingAPI struct {
	booking    entities.BookingDetails
	getErr     error
	confirmErr error
	fetched    []string
	confirmed  []string
}

func (b *stubBookingAPI) GetBooking(ctx context.Context, uid string) (entities.BookingDetails, error) {
	b.fetched = append(b.fetched, uid)
	if b.getErr != nil {
		return entities.BookingDetails{}, b.getErr
	}
	return b.booking, nil
}

func (b *stubBookingAPI) ConfirmBooking(ctx context.Context, uid string) error {
	b.confirmed = append(b.confirmed, uid)
	return b.confirmErr
}

type stubCheckout struct {
	url      string
	id       string
	err      error
	metadata map[string]string
}

func (c *stubCheckout) CreateCheckoutSession(amount int64, currency, description, customerEmail string, metadata map[string]string) (string, string, error) {
	c.metadata = metadata
	if c.err != nil {
		return "", "", c.err
	}
	return c.url, c.id, nil
}

func pendingEvent(id string, start time.Time, meta entities.Metadata) entities.Event {
	return entities.Event{
		ID:             id,
		ProviderStatus: "confirmed",
		Summary:        entities.FormatSummary(entities.SlotPending, meta.Name),
		Description:    entities.EncodeMetadata(meta),
		Start:          start,
		End:            start.Add(30 * time.Minute),
	}
}

func availableEvent(id string, start time.Time) entities.Event {
	return entities.Event{
		ID:             id,
		ProviderStatus: "confirmed",
		Summary:        entities.FormatSummary(entities.SlotAvailable, ""),
		Start:          start,
		End:            start.Add(30 * time.Minute),
	}
}

func confirmedEvent(id string, start time.Time, meta entities.Metadata) entities.Event {
	return entities.Event{
		ID:             id,
		ProviderStatus: "confirmed",
		Summary:        entities.FormatSummary(entities.SlotConfirmed, meta.Name),
		Description:    entities.EncodeMetadata(meta),
		Start:          start,
		End:            start.Add(30 * time.Minute),
	}
}
