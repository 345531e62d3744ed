package main

import (
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/salon-booking/cli/internal/api"
	"github.com/salon-booking/cli/internal/config"
	"github.com/salon-booking/cli/internal/devserver"
	"golang.org/x/crypto/bcrypt"
)

func TestIsSafeTarget(t *testing.T) {
	tests := []struct {
		name string
		url  string
		env  string
		want bool
	}{
		// Loopback addresses are always safe
		{"localhost", "http://localhost:8787", "", true},
		{"ipv4 loopback", "http://127.0.0.1:8787", "", true},
		{"ipv6 loopback", "http://[::1]:8787/", "", true},

		// Non-loopback without ENVIRONMENT
		{"remote no env", "https://api.salon.example.com", "", false},

		// Non-loopback with ENVIRONMENT=production
		{"remote production", "https://api.salon.example.com", "production", false},
		{"remote Production", "https://api.salon.example.com", "Production", false},

		// Non-loopback with non-production ENVIRONMENT
		{"remote development", "https://api.salon.example.com", "development", true},
		{"remote staging", "https://api.salon.example.com", "staging", true},

		// Invalid URL
		{"invalid url", "://bad", "", false},
		{"no host", "localhost", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				os.Setenv("ENVIRONMENT", tt.env)
				t.Cleanup(func() { os.Unsetenv("ENVIRONMENT") })
			} else {
				os.Unsetenv("ENVIRONMENT")
			}

			if got := isSafeTarget(tt.url); got != tt.want {
				t.Errorf("isSafeTarget(%q) with ENVIRONMENT=%q = %v, want %v", tt.url, tt.env, got, tt.want)
			}
		})
	}
}

// --- Flow tests against the dev server ---

type codeBox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (c *codeBox) get(phone, purpose string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[phone+"/"+purpose]
}

func newTestModel(t *testing.T, codeLength int) (model, *codeBox) {
	t.Helper()
	box := &codeBox{codes: make(map[string]string)}
	clock := func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	srv := devserver.New(devserver.Options{
		CodeLength: codeLength,
		HashCost:   bcrypt.MinCost,
		Now:        clock,
		OnCode: func(phone, purpose, code string) {
			box.mu.Lock()
			defer box.mu.Unlock()
			box.codes[phone+"/"+purpose] = code
		},
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	m := initialModel(api.NewClient(ts.URL, 5*time.Second), config.CodeConfig{Length: 6})
	m.now = clock
	return m, box
}

// step applies one message and renders, as the program loop does.
func step(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(model)
	m.View()
	return m, cmd
}

// send applies msg and then every command it produces, synchronously.
func send(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	m, cmd := step(t, m, msg)
	for cmd != nil {
		out := cmd()
		if out == nil {
			break
		}
		m, cmd = step(t, m, out)
	}
	return m
}

func press(t *testing.T, m model, keys ...string) model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		case "ctrl+r":
			msg = tea.KeyMsg{Type: tea.KeyCtrlR}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m = send(t, m, msg)
	}
	return m
}

func typeText(t *testing.T, m model, s string) model {
	t.Helper()
	for _, r := range s {
		m = press(t, m, string(r))
	}
	return press(t, m, "enter")
}

func selectMenu(t *testing.T, m model, a action) model {
	t.Helper()
	for i, item := range menuItems {
		if !item.isHeader && item.action == a {
			m.cursor = i
			return press(t, m, "enter")
		}
	}
	t.Fatalf("no menu item for action %d", a)
	return m
}

func signUp(t *testing.T, m model, box *codeBox, phone string) model {
	t.Helper()
	m = selectMenu(t, m, actionSignUp)
	m = typeText(t, m, "Ada")
	m = typeText(t, m, phone)
	m = typeText(t, m, "password1")
	if m.state != stateCode {
		t.Fatalf("expected code entry, got state %d (err %v)", m.state, m.resultErr)
	}
	for _, d := range box.get(phone, api.PurposeSignup) {
		m = press(t, m, string(d))
	}
	return m
}

func TestMenuRequiresSignIn(t *testing.T) {
	m, _ := newTestModel(t, 6)
	m = selectMenu(t, m, actionBook)
	if m.state != stateResult || m.resultErr == nil {
		t.Fatalf("expected sign-in error, got state %d err %v", m.state, m.resultErr)
	}
}

func TestSignUpFlowVerifiesCode(t *testing.T) {
	m, box := newTestModel(t, 4)
	m = signUp(t, m, box, "5550100")

	if m.state != stateResult {
		t.Fatalf("expected result, got state %d", m.state)
	}
	if m.resultErr != nil {
		t.Fatalf("unexpected error: %v", m.resultErr)
	}
	if !strings.Contains(m.resultMessage, "Welcome, Ada") {
		t.Fatalf("expected welcome message, got %q", m.resultMessage)
	}
	if !m.client.Authenticated() {
		t.Fatal("expected client to be signed in")
	}
}

func TestCodeLengthFollowsServer(t *testing.T) {
	m, _ := newTestModel(t, 4)
	m = selectMenu(t, m, actionSignUp)
	m = typeText(t, m, "Ada")
	m = typeText(t, m, "5550100")
	m = typeText(t, m, "password1")
	if got := m.code.Controller().Len(); got != 4 {
		t.Fatalf("expected 4 cells, got %d", got)
	}
}

func TestWrongCodeShowsErrorAndAllowsRetry(t *testing.T) {
	m, box := newTestModel(t, 4)
	m = selectMenu(t, m, actionSignUp)
	m = typeText(t, m, "Ada")
	m = typeText(t, m, "5550100")
	m = typeText(t, m, "password1")

	good := box.get("5550100", api.PurposeSignup)
	bad := "0" + good[1:]
	if good[0] == '0' {
		bad = "1" + good[1:]
	}
	for _, d := range bad {
		m = press(t, m, string(d))
	}
	if m.state != stateCode {
		t.Fatalf("expected to stay on code entry, got state %d", m.state)
	}
	if m.code.Err() == "" {
		t.Fatal("expected inline error")
	}
	if m.code.Code() != "" {
		t.Fatalf("expected cells cleared, got %q", m.code.Code())
	}

	for _, d := range good {
		m = press(t, m, string(d))
	}
	if m.state != stateResult || m.resultErr != nil {
		t.Fatalf("expected success after retry, got state %d err %v", m.state, m.resultErr)
	}
}

func TestLettersIgnoredInCodeEntry(t *testing.T) {
	m, _ := newTestModel(t, 6)
	m = selectMenu(t, m, actionSignUp)
	m = typeText(t, m, "Ada")
	m = typeText(t, m, "5550100")
	m = typeText(t, m, "password1")

	m = press(t, m, "a", "1", "b", "backspace", "backspace")
	if m.code.Code() != "" {
		t.Fatalf("expected empty code, got %q", m.code.Code())
	}
	if m.code.Focused() != 0 {
		t.Fatalf("expected focus 0, got %d", m.code.Focused())
	}
}

func TestForgotPasswordFlow(t *testing.T) {
	m, box := newTestModel(t, 6)
	m = signUp(t, m, box, "5550100")
	m = press(t, m, "enter")
	m = selectMenu(t, m, actionLogout)
	m = press(t, m, "enter")

	m = selectMenu(t, m, actionForgotPassword)
	m = typeText(t, m, "5550100")
	if m.state != stateCode {
		t.Fatalf("expected code entry, got state %d (err %v)", m.state, m.resultErr)
	}
	for _, d := range box.get("5550100", api.PurposeReset) {
		m = press(t, m, string(d))
	}
	if m.state != stateInput {
		t.Fatalf("expected new password prompt, got state %d", m.state)
	}
	m = typeText(t, m, "brandnew1")
	if m.resultErr != nil {
		t.Fatalf("unexpected error: %v", m.resultErr)
	}

	m = press(t, m, "enter")
	m = selectMenu(t, m, actionLogin)
	m = typeText(t, m, "5550100")
	m = typeText(t, m, "brandnew1")
	if m.resultErr != nil || !strings.Contains(m.resultMessage, "Welcome back") {
		t.Fatalf("expected login with new password, got %q / %v", m.resultMessage, m.resultErr)
	}
}

func TestBookAndReviewFlow(t *testing.T) {
	m, box := newTestModel(t, 6)
	m = signUp(t, m, box, "5550100")
	m = press(t, m, "enter")

	m = selectMenu(t, m, actionBook)
	if m.state != stateServices || len(m.services) == 0 {
		t.Fatalf("expected services, got state %d", m.state)
	}
	m = press(t, m, "enter") // Haircut
	if m.state != stateDates {
		t.Fatalf("expected date picker, got state %d", m.state)
	}
	m = press(t, m, "right", "enter") // tomorrow
	if m.state != stateTimes || m.date != "2026-10-20" {
		t.Fatalf("expected times for 2026-10-20, got state %d date %q", m.state, m.date)
	}
	m = press(t, m, "right", "enter") // 09:30
	if m.state != stateConfirm || m.slotTime != "09:30" {
		t.Fatalf("expected confirm for 09:30, got state %d time %q", m.state, m.slotTime)
	}
	m = press(t, m, "y")
	if m.resultErr != nil || !strings.Contains(m.resultMessage, "Booked Haircut") {
		t.Fatalf("expected booking, got %q / %v", m.resultMessage, m.resultErr)
	}
	m = press(t, m, "enter")

	// The booked slot is now skipped by the picker.
	m = selectMenu(t, m, actionBook)
	m = press(t, m, "enter", "right", "enter", "right")
	if m.slots[m.pick].Time != "10:00" {
		t.Fatalf("expected picker to skip 09:30, got %s", m.slots[m.pick].Time)
	}
	m = press(t, m, "esc", "esc", "esc")
	if m.state != stateMenu {
		t.Fatalf("expected menu, got state %d", m.state)
	}

	m = selectMenu(t, m, actionReview)
	if m.state != stateReviewPick || len(m.bookings) != 1 {
		t.Fatalf("expected one reviewable booking, got state %d (%d)", m.state, len(m.bookings))
	}
	m = press(t, m, "enter")
	m = typeText(t, m, "5")
	m = typeText(t, m, "Lovely")
	if m.state != stateConfirm {
		t.Fatalf("expected confirm, got state %d", m.state)
	}
	m = press(t, m, "y")
	if m.resultErr != nil {
		t.Fatalf("unexpected error: %v", m.resultErr)
	}
	m = press(t, m, "enter")

	m = selectMenu(t, m, actionMyBookings)
	if m.state != stateBookings || len(m.bookings) != 1 || m.bookings[0].Review == nil {
		t.Fatalf("expected reviewed booking, got %+v", m.bookings)
	}
	if !strings.Contains(m.View(), "★★★★★") {
		t.Fatalf("expected stars in view, got:\n%s", m.View())
	}
}

func TestReviewRejectsBadRating(t *testing.T) {
	m, box := newTestModel(t, 6)
	m = signUp(t, m, box, "5550100")
	m = press(t, m, "enter")
	m = selectMenu(t, m, actionBook)
	m = press(t, m, "enter", "enter", "enter", "y", "enter")

	m = selectMenu(t, m, actionReview)
	m = press(t, m, "enter")
	m = typeText(t, m, "9")
	m = press(t, m, "enter") // skip optional comment
	m = press(t, m, "y")
	if m.resultErr == nil {
		t.Fatal("expected rating error")
	}
}

func TestPasswordFieldMasked(t *testing.T) {
	m, _ := newTestModel(t, 6)
	m = selectMenu(t, m, actionLogin)
	m = typeText(t, m, "5550100")
	m = press(t, m, "s", "e", "c")
	view := m.View()
	if strings.Contains(view, "sec") {
		t.Fatalf("expected password hidden, got:\n%s", view)
	}
	if !strings.Contains(view, "•••") {
		t.Fatalf("expected mask, got:\n%s", view)
	}
}

func TestSubmittingLastFieldShowsWorking(t *testing.T) {
	m, box := newTestModel(t, 6)
	m = signUp(t, m, box, "5550100")
	m = press(t, m, "enter")

	m = selectMenu(t, m, actionLogin)
	m = typeText(t, m, "5550100")
	m = press(t, m, "p", "a", "s", "s", "w", "o", "r", "d", "1")

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != stateWorking {
		t.Fatalf("expected working state, got %d", m.state)
	}
	if cmd == nil {
		t.Fatal("expected login command")
	}
	if !strings.Contains(m.View(), "Working...") {
		t.Fatalf("expected working view, got:\n%s", m.View())
	}

	m, again := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if again != nil {
		t.Fatal("expected repeated enter to be ignored")
	}

	m = send(t, m, cmd())
	if m.resultErr != nil || !strings.Contains(m.resultMessage, "Welcome back") {
		t.Fatalf("expected login, got %q / %v", m.resultMessage, m.resultErr)
	}
}

func TestInputViewPastLastField(t *testing.T) {
	m, _ := newTestModel(t, 6)
	m.startInput([]field{{label: "Phone"}})
	m.inputs = append(m.inputs, "5550100")
	m.inputField = 1

	m.View()
	if _, cmd := m.handleInput("enter", tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatal("expected no command")
	}
}

func TestVerificationDroppedAfterLeaving(t *testing.T) {
	m, box := newTestModel(t, 4)
	m = selectMenu(t, m, actionSignUp)
	m = typeText(t, m, "Ada")
	m = typeText(t, m, "5550100")
	m = typeText(t, m, "password1")

	code := box.get("5550100", api.PurposeSignup)
	m = press(t, m, string(code[0]), string(code[1]), string(code[2]))

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{rune(code[3])}})
	if cmd == nil {
		t.Fatal("expected completion command")
	}
	m, verify := step(t, m, cmd())
	if verify == nil || !m.verifying {
		t.Fatal("expected verification in flight")
	}

	m = press(t, m, "esc")
	m = send(t, m, verify())
	if m.state != stateMenu {
		t.Fatalf("expected to stay on the menu, got state %d", m.state)
	}
	if m.resultMessage != "" {
		t.Fatalf("expected no result, got %q", m.resultMessage)
	}
}

func TestStaleVerificationIgnoredAfterResend(t *testing.T) {
	m, box := newTestModel(t, 4)
	m = selectMenu(t, m, actionSignUp)
	m = typeText(t, m, "Ada")
	m = typeText(t, m, "5550100")
	m = typeText(t, m, "password1")

	m.verifying = true
	m.verifySeq = 1
	m = press(t, m, "ctrl+r")
	if m.state != stateCode {
		t.Fatalf("expected code entry after resend, got state %d (err %v)", m.state, m.resultErr)
	}

	m = send(t, m, verifiedMsg{seq: 1, err: &api.APIError{Code: api.CodeInvalidCode, Message: "Incorrect code"}})
	if m.code.Err() != "" {
		t.Fatalf("expected stale result ignored, got error %q", m.code.Err())
	}

	for _, d := range box.get("5550100", api.PurposeSignup) {
		m = press(t, m, string(d))
	}
	if m.state != stateResult || m.resultErr != nil {
		t.Fatalf("expected verification with new code, got state %d err %v", m.state, m.resultErr)
	}
}
