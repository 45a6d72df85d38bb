package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"consultorio/internal/entities"
	apperrors "consultorio/internal/errors"
)

const defaultTimeout = 10 * time.Second

// Client is a thin adapter over the calendar provider's events REST API. The
// provider is the system of record for slots; this client treats events as
// opaque label+description blobs and leaves all interpretation to callers.
type Client struct {
	baseURL    string
	calendarID string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, calendarID, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		calendarID: calendarID,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type eventTime struct {
	DateTime time.Time `json:"dateTime"`
}

type eventResource struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
	Updated     time.Time `json:"updated"`
}

type listResponse struct {
	Items         []eventResource `json:"items"`
	NextSyncToken string          `json:"nextSyncToken"`
}

type watchRequest struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Address string `json:"address"`
}

type watchResponse struct {
	ID         string `json:"id"`
	ResourceID string `json:"resourceId"`
}

// ListWindow returns every event overlapping [from, to), plus a sync token
// usable to seed incremental listings.
func (c *Client) ListWindow(ctx context.Context, from, to time.Time) (entities.EventPage, error) {
	q := url.Values{}
	q.Set("timeMin", from.UTC().Format(time.RFC3339))
	q.Set("timeMax", to.UTC().Format(time.RFC3339))
	q.Set("singleEvents", "true")
	return c.list(ctx, q)
}

// ListChanges returns events changed since the given sync token. A token the
// provider no longer honors surfaces as ErrCursorExpired.
func (c *Client) ListChanges(ctx context.Context, syncToken string) (entities.EventPage, error) {
	q := url.Values{}
	q.Set("syncToken", syncToken)
	return c.list(ctx, q)
}

func (c *Client) list(ctx context.Context, q url.Values) (entities.EventPage, error) {
	var out listResponse
	path := fmt.Sprintf("/calendars/%s/events?%s", url.PathEscape(c.calendarID), q.Encode())
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return entities.EventPage{}, err
	}
	page := entities.EventPage{NextSyncToken: out.NextSyncToken}
	for _, item := range out.Items {
		page.Items = append(page.Items, toEvent(item))
	}
	return page, nil
}

func (c *Client) Get(ctx context.Context, id string) (entities.Event, error) {
	var out eventResource
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(c.calendarID), url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return entities.Event{}, err
	}
	return toEvent(out), nil
}

// Patch updates only the label and metadata text of an event.
func (c *Client) Patch(ctx context.Context, id, summary, description string) (entities.Event, error) {
	body := map[string]string{
		"summary":     summary,
		"description": description,
	}
	var out eventResource
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(c.calendarID), url.PathEscape(id))
	if err := c.do(ctx, http.MethodPatch, path, body, &out); err != nil {
		return entities.Event{}, err
	}
	return toEvent(out), nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(c.calendarID), url.PathEscape(id))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Watch registers a push channel delivering change notifications to
// callbackURL and returns the channel id.
func (c *Client) Watch(ctx context.Context, callbackURL string) (string, error) {
	req := watchRequest{
		ID:      uuid.NewString(),
		Type:    "web_hook",
		Address: callbackURL,
	}
	var out watchResponse
	path := fmt.Sprintf("/calendars/%s/events/watch", url.PathEscape(c.calendarID))
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return "", err
	}
	if out.ID != "" {
		return out.ID, nil
	}
	return req.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal calendar request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build calendar request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone:
		return apperrors.ErrCursorExpired
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: calendar %s %s returned %d: %s", apperrors.ErrUpstreamRejected, method, path, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode calendar response: %w", err)
	}
	return nil
}

func classify(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", apperrors.ErrUpstreamTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apperrors.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("calendar request failed: %w", err)
}

func toEvent(r eventResource) entities.Event {
	return entities.Event{
		ID:             r.ID,
		ProviderStatus: r.Status,
		Summary:        r.Summary,
		Description:    r.Description,
		Start:          r.Start.DateTime,
		End:            r.End.DateTime,
		Updated:        r.Updated,
	}
}
