package bookingapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"consultorio/internal/entities"
	apperrors "consultorio/internal/errors"
)

const defaultTimeout = 10 * time.Second

// Client talks to the external booking API that owns the authoritative
// attendee and intake-form data collected by the embedded booking widget.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phoneNumber"`
}

type bookingResource struct {
	UID       string            `json:"uid"`
	StartTime time.Time         `json:"startTime"`
	Location  string            `json:"location"`
	Attendees []attendee        `json:"attendees"`
	Responses map[string]string `json:"responses"`
}

type bookingResponse struct {
	Booking bookingResource `json:"booking"`
}

// GetBooking fetches the booking record for uid. A missing record is a hard
// failure: the payment flow must not confirm a slot without it.
func (c *Client) GetBooking(ctx context.Context, uid string) (entities.BookingDetails, error) {
	var out bookingResponse
	path := "/bookings/" + url.PathEscape(uid)
	if err := c.do(ctx, http.MethodGet, path, &out); err != nil {
		return entities.BookingDetails{}, err
	}

	details := entities.BookingDetails{
		UID:       out.Booking.UID,
		StartTime: out.Booking.StartTime,
		Location:  out.Booking.Location,
		Symptoms:  out.Booking.Responses["symptoms"],
		History:   out.Booking.Responses["history"],
	}
	if len(out.Booking.Attendees) > 0 {
		details.AttendeeName = out.Booking.Attendees[0].Name
		details.AttendeeEmail = out.Booking.Attendees[0].Email
		details.AttendeePhone = out.Booking.Attendees[0].Phone
	}
	return details, nil
}

// ConfirmBooking marks the booking accepted on the provider side.
func (c *Client) ConfirmBooking(ctx context.Context, uid string) error {
	path := "/bookings/" + url.PathEscape(uid) + "/confirm"
	return c.do(ctx, http.MethodPost, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build booking request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return fmt.Errorf("%w: %v", apperrors.ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("booking request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", apperrors.ErrBookingNotFound, path)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: booking %s %s returned %d: %s", apperrors.ErrUpstreamRejected, method, path, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode booking response: %w", err)
	}
	return nil
}
