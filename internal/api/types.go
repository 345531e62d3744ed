package api

import (
	"errors"
	"fmt"
	"time"
)

// Error codes returned by the API.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidLogin    = "INVALID_CREDENTIALS"
	CodeInvalidCode     = "INVALID_CODE"
	CodeCodeExpired     = "CODE_EXPIRED"
	CodeTooManyTries    = "TOO_MANY_ATTEMPTS"
	CodeDuplicatePhone  = "DUPLICATE_PHONE"
	CodeSlotTaken       = "SLOT_TAKEN"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeAlreadyReviewed = "ALREADY_REVIEWED"
	CodeUnverified      = "UNVERIFIED"
)

// Purposes a verification code can be issued for.
const (
	PurposeSignup = "signup"
	PurposeReset  = "reset"
)

// DateLayout is the wire format for booking dates.
const DateLayout = "2006-01-02"

// APIError represents an error response from the API.
type APIError struct {
	Message string `json:"error"`
	Code    string `json:"code"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (code: %s)", e.Message, e.Code)
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// --- Auth ---

// User is a salon customer account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// AuthResponse is returned by a successful login or sign-up verification.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// SignUpRequest is the request body for POST /auth/signup.
type SignUpRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// SignUpResponse is the response from POST /auth/signup. A verification
// code is sent to the phone as part of sign-up.
type SignUpResponse struct {
	UserID     string `json:"user_id"`
	CodeLength int    `json:"code_length"`
	ExpiresIn  int    `json:"expires_in"`
}

// SendCodeRequest is the request body for POST /auth/code/send.
type SendCodeRequest struct {
	Phone   string `json:"phone"`
	Purpose string `json:"purpose"`
}

// SendCodeResponse describes the code that was sent.
type SendCodeResponse struct {
	CodeLength int `json:"code_length"`
	ExpiresIn  int `json:"expires_in"`
}

// VerifyCodeRequest is the request body for POST /auth/code/verify.
type VerifyCodeRequest struct {
	Phone   string `json:"phone"`
	Code    string `json:"code"`
	Purpose string `json:"purpose"`
}

// VerifyCodeResponse carries a session token for sign-up codes and a
// reset token for password reset codes.
type VerifyCodeResponse struct {
	Token      string `json:"token,omitempty"`
	ResetToken string `json:"reset_token,omitempty"`
	User       *User  `json:"user,omitempty"`
}

// ResetPasswordRequest is the request body for POST /auth/password/reset.
type ResetPasswordRequest struct {
	ResetToken string `json:"reset_token"`
	Password   string `json:"password"`
}

// SuccessResponse is a bare acknowledgement.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Bookings ---

// Service is a bookable salon treatment.
type Service struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Minutes  int    `json:"minutes"`
	PriceCts int    `json:"price_cents"`
}

// ListServicesResponse is the response from GET /services.
type ListServicesResponse struct {
	Services []Service `json:"services"`
}

// Slot is one appointment start time on a given day.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// ListSlotsResponse is the response from GET /bookings/slots.
type ListSlotsResponse struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// CreateBookingRequest is the request body for POST /bookings.
type CreateBookingRequest struct {
	ServiceID string `json:"service_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

// Booking is a confirmed appointment.
type Booking struct {
	ID        string  `json:"id"`
	ServiceID string  `json:"service_id"`
	Service   string  `json:"service"`
	Date      string  `json:"date"`
	Time      string  `json:"time"`
	CreatedAt string  `json:"created_at"`
	Review    *Review `json:"review,omitempty"`
}

// ListBookingsResponse is the response from GET /bookings.
type ListBookingsResponse struct {
	Bookings []Booking `json:"bookings"`
}

// ReviewRequest is the request body for POST /bookings/{id}/review.
type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// Review is a customer's rating of a completed booking.
type Review struct {
	BookingID string `json:"booking_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at"`
}

// UpcomingDates returns n consecutive dates starting at from, formatted for
// the API.
func UpcomingDates(from time.Time, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, from.AddDate(0, 0, i).Format(DateLayout))
	}
	return out
}
