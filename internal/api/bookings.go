package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListServices returns the bookable treatments.
func (c *Client) ListServices(ctx context.Context) (*ListServicesResponse, error) {
	var out ListServicesResponse
	if err := c.doPublic(ctx, http.MethodGet, "/services", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSlots returns appointment times for date (YYYY-MM-DD).
func (c *Client) ListSlots(ctx context.Context, date string) (*ListSlotsResponse, error) {
	q := url.Values{}
	q.Set("date", date)
	path := "/bookings/slots?" + q.Encode()

	var out ListSlotsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBooking books an appointment.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error) {
	var out Booking
	if err := c.do(ctx, http.MethodPost, "/bookings", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBookings returns the signed-in customer's bookings.
func (c *Client) ListBookings(ctx context.Context) (*ListBookingsResponse, error) {
	var out ListBookingsResponse
	if err := c.do(ctx, http.MethodGet, "/bookings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitReview rates a booking.
func (c *Client) SubmitReview(ctx context.Context, bookingID string, req ReviewRequest) (*Review, error) {
	var out Review
	if err := c.do(ctx, http.MethodPost, "/bookings/"+url.PathEscape(bookingID)+"/review", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
