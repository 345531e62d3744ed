// Package devserver is an in-memory stand-in for the salon booking API, used
// for local development and end-to-end tests of the client.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/salon-booking/cli/internal/api"
	"golang.org/x/crypto/bcrypt"
)

const (
	openHour     = 9
	closeHour    = 18
	slotMinutes  = 30
	minPassword  = 8
	resetTTL     = 10 * time.Minute
	maxCommentLn = 500
)

// Catalog is the fixed list of bookable services.
var Catalog = []api.Service{
	{ID: "cut", Name: "Haircut", Minutes: 30, PriceCts: 4500},
	{ID: "blowdry", Name: "Blow-dry", Minutes: 30, PriceCts: 3500},
	{ID: "colour", Name: "Colour", Minutes: 90, PriceCts: 12000},
	{ID: "manicure", Name: "Manicure", Minutes: 45, PriceCts: 4000},
}

// Options configures a Server.
type Options struct {
	CodeLength  int
	CodeTTL     time.Duration
	MaxAttempts int
	// HashCost is the bcrypt cost for passwords and codes.
	HashCost int
	Logger   *Logger
	// OnCode receives every issued code. Defaults to logging it.
	OnCode func(phone, purpose, code string)
	Now    func() time.Time
}

// Server serves the booking API from memory.
type Server struct {
	opts   Options
	store  *store
	router *mux.Router
}

type ctxKey struct{}

// New creates a Server with defaults filled in.
func New(opts Options) *Server {
	if opts.CodeLength <= 0 {
		opts.CodeLength = 6
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 5 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OnCode == nil {
		logger := opts.Logger
		opts.OnCode = func(phone, purpose, code string) {
			logger.Info("%s code for %s: %s", purpose, phone, code)
		}
	}

	s := &Server{opts: opts, store: newStore()}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)
	r.HandleFunc("/services", s.handleServices).Methods(http.MethodGet)

	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/signup", s.handleSignUp).Methods(http.MethodPost)
	r.HandleFunc("/auth/code/send", s.handleSendCode).Methods(http.MethodPost)
	r.HandleFunc("/auth/code/verify", s.handleVerifyCode).Methods(http.MethodPost)
	r.HandleFunc("/auth/password/reset", s.handleResetPassword).Methods(http.MethodPost)

	b := r.PathPrefix("/bookings").Subrouter()
	b.Use(s.requireUser)
	b.HandleFunc("/slots", s.handleSlots).Methods(http.MethodGet)
	b.HandleFunc("", s.handleListBookings).Methods(http.MethodGet)
	b.HandleFunc("", s.handleCreateBooking).Methods(http.MethodPost)
	b.HandleFunc("/{id}/review", s.handleReview).Methods(http.MethodPost)

	return r
}

// --- Middleware ---

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.opts.Now()
		next.ServeHTTP(w, r)
		s.opts.Logger.Info("%s %s (%s)", r.Method, r.URL.Path, s.opts.Now().Sub(start))
	})
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		userID, ok := s.store.sessionUser(token)
		if token == "" || !ok {
			writeError(w, http.StatusUnauthorized, api.CodeUnauthorized, "Sign in required")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

// --- Auth ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	u, ok := s.store.userByPhone(normalizePhone(req.Phone))
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, api.CodeInvalidLogin, "Invalid phone or password")
		return
	}
	if !u.verified {
		writeError(w, http.StatusForbidden, api.CodeUnverified, "Phone number not verified")
		return
	}
	writeJSON(w, http.StatusOK, api.AuthResponse{Token: s.store.newSession(u.id), User: publicUser(u)})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req api.SignUpRequest
	if !decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	phone := normalizePhone(req.Phone)
	switch {
	case name == "":
		writeError(w, http.StatusBadRequest, api.CodeValidation, "name is required")
		return
	case phone == "":
		writeError(w, http.StatusBadRequest, api.CodeValidation, "phone is required")
		return
	case len(req.Password) < minPassword:
		writeError(w, http.StatusBadRequest, api.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPassword))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.HashCost)
	if err != nil {
		s.internalError(w, "hash password", err)
		return
	}
	u, err := s.store.putUnverified(name, phone, hash)
	if errors.Is(err, errDuplicatePhone) {
		writeError(w, http.StatusConflict, api.CodeDuplicatePhone, "Phone number already registered")
		return
	}

	if err := s.issueCode(phone, api.PurposeSignup); err != nil {
		s.internalError(w, "issue code", err)
		return
	}
	writeJSON(w, http.StatusCreated, api.SignUpResponse{
		UserID:     u.id,
		CodeLength: s.opts.CodeLength,
		ExpiresIn:  int(s.opts.CodeTTL.Seconds()),
	})
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req api.SendCodeRequest
	if !decode(w, r, &req) {
		return
	}
	phone := normalizePhone(req.Phone)
	u, ok := s.store.userByPhone(phone)
	switch req.Purpose {
	case api.PurposeSignup:
		ok = ok && !u.verified
	case api.PurposeReset:
		ok = ok && u.verified
	default:
		writeError(w, http.StatusBadRequest, api.CodeValidation, "unknown purpose")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, api.CodeNotFound, "No matching account")
		return
	}

	if err := s.issueCode(phone, req.Purpose); err != nil {
		s.internalError(w, "issue code", err)
		return
	}
	writeJSON(w, http.StatusOK, api.SendCodeResponse{
		CodeLength: s.opts.CodeLength,
		ExpiresIn:  int(s.opts.CodeTTL.Seconds()),
	})
}

func (s *Server) issueCode(phone, purpose string) error {
	code, err := GenerateNumericCode(s.opts.CodeLength)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.opts.HashCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	s.store.putCode(phone, purpose, hash, s.opts.Now().Add(s.opts.CodeTTL))
	s.opts.OnCode(phone, purpose, code)
	return nil
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyCodeRequest
	if !decode(w, r, &req) {
		return
	}
	phone := normalizePhone(req.Phone)

	var status int
	var code, msg string
	found := s.store.withCode(phone, req.Purpose, func(pc *pendingCode) bool {
		if s.opts.Now().After(pc.expiresAt) {
			status, code, msg = http.StatusGone, api.CodeCodeExpired, "Code expired, request a new one"
			return true
		}
		if bcrypt.CompareHashAndPassword(pc.hash, []byte(req.Code)) != nil {
			pc.attempts++
			if pc.attempts >= s.opts.MaxAttempts {
				status, code, msg = http.StatusTooManyRequests, api.CodeTooManyTries, "Too many attempts, request a new code"
				return true
			}
			status, code, msg = http.StatusBadRequest, api.CodeInvalidCode, "Incorrect code"
			return false
		}
		return true
	})
	if !found {
		writeError(w, http.StatusBadRequest, api.CodeInvalidCode, "Incorrect code")
		return
	}
	if status != 0 {
		s.opts.Logger.Warn("code rejected for %s (%s): %s", phone, req.Purpose, code)
		writeError(w, status, code, msg)
		return
	}

	u, ok := s.store.userByPhone(phone)
	if !ok {
		writeError(w, http.StatusNotFound, api.CodeNotFound, "No matching account")
		return
	}

	switch req.Purpose {
	case api.PurposeSignup:
		s.store.markVerified(phone)
		pu := publicUser(u)
		writeJSON(w, http.StatusOK, api.VerifyCodeResponse{Token: s.store.newSession(u.id), User: &pu})
	case api.PurposeReset:
		writeJSON(w, http.StatusOK, api.VerifyCodeResponse{ResetToken: s.store.newReset(u.id, s.opts.Now().Add(resetTTL))})
	}
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Password) < minPassword {
		writeError(w, http.StatusBadRequest, api.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPassword))
		return
	}
	userID, ok := s.store.takeReset(req.ResetToken, s.opts.Now())
	if !ok {
		writeError(w, http.StatusUnauthorized, api.CodeUnauthorized, "Reset link expired")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.HashCost)
	if err != nil {
		s.internalError(w, "hash password", err)
		return
	}
	s.store.setPassword(userID, hash)
	writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true, Message: "Password updated"})
}

// --- Bookings ---

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.ListServicesResponse{Services: Catalog})
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse(api.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeValidation, "date must be YYYY-MM-DD")
		return
	}
	taken := s.store.takenTimes(date)
	now := s.opts.Now()
	times := DayTimes()
	slots := make([]api.Slot, len(times))
	for i, t := range times {
		start, _ := s.slotStart(date, t)
		slots[i] = api.Slot{Time: t, Available: !taken[t] && start.After(now)}
	}
	writeJSON(w, http.StatusOK, api.ListSlotsResponse{Date: date, Slots: slots})
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req api.CreateBookingRequest
	if !decode(w, r, &req) {
		return
	}
	svc, ok := findService(req.ServiceID)
	if !ok {
		writeError(w, http.StatusBadRequest, api.CodeValidation, "unknown service")
		return
	}
	if _, err := time.Parse(api.DateLayout, req.Date); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeValidation, "date must be YYYY-MM-DD")
		return
	}
	if !validTime(req.Time) {
		writeError(w, http.StatusBadRequest, api.CodeValidation, "time is not a bookable slot")
		return
	}
	start, err := s.slotStart(req.Date, req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, api.CodeValidation, "time is not a bookable slot")
		return
	}
	if !start.After(s.opts.Now()) {
		writeError(w, http.StatusBadRequest, api.CodeValidation, "slot is in the past")
		return
	}
	closing := time.Date(start.Year(), start.Month(), start.Day(), closeHour, 0, 0, 0, start.Location())
	if start.Add(time.Duration(svc.Minutes) * time.Minute).After(closing) {
		writeError(w, http.StatusBadRequest, api.CodeValidation, fmt.Sprintf("%s runs past closing time", svc.Name))
		return
	}

	b, err := s.store.addBooking(userFrom(r), api.Booking{
		ServiceID: svc.ID,
		Service:   svc.Name,
		Date:      req.Date,
		Time:      req.Time,
		CreatedAt: s.opts.Now().UTC().Format(time.RFC3339),
	})
	if errors.Is(err, errSlotTaken) {
		writeError(w, http.StatusConflict, api.CodeSlotTaken, "Slot already booked")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.ListBookingsResponse{Bookings: s.store.bookingsFor(userFrom(r))})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req api.ReviewRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, api.CodeValidation, "rating must be between 1 and 5")
		return
	}
	if len(req.Comment) > maxCommentLn {
		writeError(w, http.StatusBadRequest, api.CodeValidation, "comment is too long")
		return
	}

	rv, err := s.store.addReview(userFrom(r), mux.Vars(r)["id"], api.Review{
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: s.opts.Now().UTC().Format(time.RFC3339),
	})
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, api.CodeNotFound, "Booking not found")
	case errors.Is(err, errAlreadyReviewed):
		writeError(w, http.StatusConflict, api.CodeAlreadyReviewed, "Booking already reviewed")
	default:
		writeJSON(w, http.StatusCreated, rv)
	}
}

// DayTimes lists every appointment start time in a day.
func DayTimes() []string {
	var out []string
	for m := openHour * 60; m < closeHour*60; m += slotMinutes {
		out = append(out, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return out
}

// slotStart resolves a date and HH:MM time in the server clock's zone.
func (s *Server) slotStart(date, hhmm string) (time.Time, error) {
	return time.ParseInLocation(api.DateLayout+" 15:04", date+" "+hhmm, s.opts.Now().Location())
}

func validTime(t string) bool {
	for _, v := range DayTimes() {
		if v == t {
			return true
		}
	}
	return false
}

func findService(id string) (api.Service, bool) {
	for _, svc := range Catalog {
		if svc.ID == id {
			return svc, true
		}
	}
	return api.Service{}, false
}

// normalizePhone strips everything except digits and a leading plus.
func normalizePhone(p string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(p) {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func publicUser(u user) api.User {
	return api.User{ID: u.id, Name: u.name, Phone: u.phone}
}

// --- Encoding ---

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeValidation, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, api.APIError{Message: msg, Code: code})
}

func (s *Server) internalError(w http.ResponseWriter, what string, err error) {
	s.opts.Logger.Error("%s: %v", what, err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
}
