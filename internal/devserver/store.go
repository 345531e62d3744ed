package devserver

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/salon-booking/cli/internal/api"
)

var (
	errNotFound        = errors.New("not found")
	errDuplicatePhone  = errors.New("phone already registered")
	errSlotTaken       = errors.New("slot already booked")
	errAlreadyReviewed = errors.New("booking already reviewed")
)

type user struct {
	id           string
	name         string
	phone        string
	passwordHash []byte
	verified     bool
}

type pendingCode struct {
	hash      []byte
	expiresAt time.Time
	attempts  int
}

type resetGrant struct {
	userID    string
	expiresAt time.Time
}

type booking struct {
	api.Booking
	userID string
}

// store is the dev server's in-memory state. All methods lock.
type store struct {
	mu       sync.Mutex
	users    map[string]*user // by phone
	codes    map[codeKey]*pendingCode
	sessions map[string]string // token -> user id
	resets   map[string]resetGrant
	bookings map[string]*booking
}

type codeKey struct {
	phone   string
	purpose string
}

func newStore() *store {
	return &store{
		users:    make(map[string]*user),
		codes:    make(map[codeKey]*pendingCode),
		sessions: make(map[string]string),
		resets:   make(map[string]resetGrant),
		bookings: make(map[string]*booking),
	}
}

// putUnverified registers phone, replacing an earlier unverified sign-up.
func (s *store) putUnverified(name, phone string, hash []byte) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[phone]; ok && u.verified {
		return nil, errDuplicatePhone
	}
	u := &user{id: uuid.NewString(), name: name, phone: phone, passwordHash: hash}
	s.users[phone] = u
	return u, nil
}

func (s *store) userByPhone(phone string) (user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[phone]
	if !ok {
		return user{}, false
	}
	return *u, true
}

func (s *store) markVerified(phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[phone]; ok {
		u.verified = true
	}
}

func (s *store) setPassword(userID string, hash []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.id == userID {
			u.passwordHash = hash
			for tok, uid := range s.sessions {
				if uid == userID {
					delete(s.sessions, tok)
				}
			}
			return true
		}
	}
	return false
}

func (s *store) putCode(phone, purpose string, hash []byte, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[codeKey{phone, purpose}] = &pendingCode{hash: hash, expiresAt: expiresAt}
}

// withCode runs check against the pending code under the lock. check returns
// whether the code should be consumed.
func (s *store) withCode(phone, purpose string, check func(*pendingCode) (consume bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := codeKey{phone, purpose}
	pc, ok := s.codes[k]
	if !ok {
		return false
	}
	if check(pc) {
		delete(s.codes, k)
	}
	return true
}

func (s *store) newSession(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := uuid.NewString()
	s.sessions[tok] = userID
	return tok
}

func (s *store) sessionUser(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessions[token]
	return id, ok
}

func (s *store) newReset(userID string, expiresAt time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := uuid.NewString()
	s.resets[tok] = resetGrant{userID: userID, expiresAt: expiresAt}
	return tok
}

func (s *store) takeReset(token string, now time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.resets[token]
	if !ok {
		return "", false
	}
	delete(s.resets, token)
	if now.After(g.expiresAt) {
		return "", false
	}
	return g.userID, true
}

func (s *store) takenTimes(date string) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool)
	for _, b := range s.bookings {
		if b.Date == date {
			out[b.Time] = true
		}
	}
	return out
}

func (s *store) addBooking(userID string, b api.Booking) (api.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.bookings {
		if existing.Date == b.Date && existing.Time == b.Time {
			return api.Booking{}, errSlotTaken
		}
	}
	b.ID = uuid.NewString()
	s.bookings[b.ID] = &booking{Booking: b, userID: userID}
	return b, nil
}

func (s *store) bookingsFor(userID string) []api.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Booking, 0)
	for _, b := range s.bookings {
		if b.userID == userID {
			out = append(out, b.Booking)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

func (s *store) addReview(userID, bookingID string, r api.Review) (api.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok || b.userID != userID {
		return api.Review{}, errNotFound
	}
	if b.Review != nil {
		return api.Review{}, errAlreadyReviewed
	}
	r.BookingID = bookingID
	b.Review = &r
	return r, nil
}
