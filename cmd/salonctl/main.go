package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/salon-booking/cli/internal/api"
	"github.com/salon-booking/cli/internal/codeinput"
	"github.com/salon-booking/cli/internal/config"
	"github.com/salon-booking/cli/internal/session"
	"github.com/salon-booking/cli/internal/ui"
)

// states
type state int

const (
	stateMenu state = iota
	stateInput
	stateCode
	stateServices
	stateDates
	stateTimes
	stateConfirm
	stateResult
	stateBookings
	stateReviewPick
	stateWorking
)

type action int

const (
	// Account
	actionLogin action = iota
	actionSignUp
	actionForgotPassword
	actionLogout
	// Bookings
	actionBook
	actionMyBookings
	actionReview
)

type menuItem struct {
	label     string
	action    action
	isHeader  bool
	needsAuth bool
}

var menuItems = []menuItem{
	{label: "ACCOUNT", isHeader: true},
	{label: "Sign in", action: actionLogin},
	{label: "Create account", action: actionSignUp},
	{label: "Forgot password", action: actionForgotPassword},
	{label: "Sign out", action: actionLogout, needsAuth: true},

	{label: "BOOKINGS", isHeader: true},
	{label: "Book an appointment", action: actionBook, needsAuth: true},
	{label: "My bookings", action: actionMyBookings, needsAuth: true},
	{label: "Review a visit", action: actionReview, needsAuth: true},
}

// bookingDays is how far ahead the date picker reaches.
const bookingDays = 14

type field struct {
	label    string
	optional bool
	secret   bool
	maxLen   int
}

// messages
type resultMsg struct {
	message string
	err     error
}

type codeSentMsg struct {
	phone   string
	purpose string
	length  int
	err     error
}

type verifiedMsg struct {
	seq  int
	resp *api.VerifyCodeResponse
	err  error
}

type servicesMsg struct {
	services []api.Service
	err      error
}

type slotsMsg struct {
	slots []api.Slot
	err   error
}

type bookingsMsg struct {
	bookings []api.Booking
	err      error
}

type model struct {
	client   *api.Client
	codeCfg  config.CodeConfig
	state    state
	cursor   int
	action   action
	input    session.InputBuffer
	quitting bool
	now      func() time.Time

	// multi-field input
	inputField int
	fields     []field
	inputs     []string

	// code entry
	code        codeinput.Model
	codePhone   string
	codePurpose string
	verifying   bool
	verifySeq   int
	resetToken  string

	// booking draft
	pick     int
	services []api.Service
	service  api.Service
	dates    []string
	date     string
	slots    []api.Slot
	slotTime string

	// result state
	resultMessage string
	resultErr     error

	// data states
	user     *api.User
	bookings []api.Booking
	review   api.Booking
	dataErr  error
}

func initialModel(client *api.Client, codeCfg config.CodeConfig) model {
	m := model{client: client, codeCfg: codeCfg, state: stateMenu, now: time.Now}
	m.cursor = firstSelectableIndex()
	return m
}

func firstSelectableIndex() int {
	for i, item := range menuItems {
		if !item.isHeader {
			return i
		}
	}
	return 0
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case resultMsg:
		m.resultMessage = msg.message
		m.resultErr = msg.err
		m.state = stateResult
		return m, nil
	case codeSentMsg:
		return m.handleCodeSent(msg)
	case codeinput.CompletedMsg:
		if m.state != stateCode || m.verifying {
			return m, nil
		}
		m.verifying = true
		m.verifySeq++
		return m, m.verifyCode(msg.Code)
	case verifiedMsg:
		return m.handleVerified(msg)
	case servicesMsg:
		m.services = msg.services
		m.dataErr = msg.err
		m.pick = 0
		m.state = stateServices
		return m, nil
	case slotsMsg:
		m.slots = msg.slots
		m.dataErr = msg.err
		m.pick = firstAvailable(msg.slots)
		m.state = stateTimes
		return m, nil
	case bookingsMsg:
		m.bookings = msg.bookings
		m.dataErr = msg.err
		m.pick = 0
		if m.action == actionReview {
			m.bookings = unreviewed(msg.bookings)
			m.state = stateReviewPick
		} else {
			m.state = stateBookings
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.state {
	case stateMenu:
		return m.handleMenu(key)
	case stateInput:
		return m.handleInput(key, msg)
	case stateWorking:
		return m, nil
	case stateCode:
		return m.handleCode(key, msg)
	case stateServices, stateTimes, stateReviewPick:
		return m.handlePicker(key)
	case stateDates:
		return m.handleDates(key)
	case stateConfirm:
		return m.handleConfirm(key)
	case stateResult, stateBookings:
		return m.handleDataView(key)
	}
	return m, nil
}

func (m model) handleMenu(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.cursor = m.prevSelectable(m.cursor)
	case "down", "j":
		m.cursor = m.nextSelectable(m.cursor)
	case "enter":
		item := menuItems[m.cursor]
		if item.isHeader {
			return m, nil
		}
		if item.needsAuth && !m.client.Authenticated() {
			m.resultMessage = ""
			m.resultErr = fmt.Errorf("sign in first")
			m.state = stateResult
			return m, nil
		}
		m.action = item.action
		return m.dispatchAction()
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) prevSelectable(from int) int {
	for i := from - 1; i >= 0; i-- {
		if !menuItems[i].isHeader {
			return i
		}
	}
	return from
}

func (m model) nextSelectable(from int) int {
	for i := from + 1; i < len(menuItems); i++ {
		if !menuItems[i].isHeader {
			return i
		}
	}
	return from
}

func (m model) dispatchAction() (model, tea.Cmd) {
	log.Printf("action %d", m.action)

	switch m.action {
	case actionLogin:
		m.startInput([]field{{label: "Phone"}, {label: "Password", secret: true}})
	case actionSignUp:
		m.startInput([]field{{label: "Name", maxLen: 60}, {label: "Phone", maxLen: 20}, {label: "Password (8+ characters)", secret: true}})
	case actionForgotPassword:
		m.resetToken = ""
		m.startInput([]field{{label: "Phone", maxLen: 20}})
	case actionLogout:
		m.client.Logout()
		m.user = nil
		m.resultMessage = "Signed out."
		m.resultErr = nil
		m.state = stateResult

	case actionBook:
		m.services = nil
		m.state = stateServices
		return m, m.fetchServices()
	case actionMyBookings, actionReview:
		m.bookings = nil
		m.state = stateBookings
		if m.action == actionReview {
			m.state = stateReviewPick
		}
		return m, m.fetchBookings()
	}
	return m, nil
}

func (m *model) startInput(fields []field) {
	m.state = stateInput
	m.inputField = 0
	m.fields = fields
	m.inputs = make([]string, 0, len(fields))
	m.input.Clear()
	m.input.MaxLen = fields[0].maxLen
}

func (m model) handleInput(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputField >= len(m.fields) {
		return m, nil
	}

	switch key {
	case "enter":
		f := m.fields[m.inputField]
		val := m.input.Value
		if !f.secret {
			val = strings.TrimSpace(val)
		}
		if val == "" && !f.optional {
			return m, nil
		}
		m.inputs = append(m.inputs, val)
		m.inputField++
		m.input.Clear()

		if m.inputField >= len(m.fields) {
			return m.afterInputComplete()
		}
		m.input.MaxLen = m.fields[m.inputField].maxLen
	case "backspace":
		m.input.Backspace()
	case "esc":
		m.state = stateMenu
		m.input.Clear()
	default:
		m.input.Append(msg.Runes)
	}
	return m, nil
}

func (m model) afterInputComplete() (model, tea.Cmd) {
	switch m.action {
	case actionLogin:
		m.state = stateWorking
		return m, m.login(m.inputs[0], m.inputs[1])
	case actionSignUp:
		m.state = stateWorking
		return m, m.signUp(m.inputs[0], m.inputs[1], m.inputs[2])
	case actionForgotPassword:
		m.state = stateWorking
		if m.resetToken != "" {
			return m, m.resetPassword(m.inputs[0])
		}
		return m, m.sendCode(m.inputs[0], api.PurposeReset)
	case actionReview:
		m.state = stateConfirm
		return m, nil
	}

	m.state = stateMenu
	return m, nil
}

// --- Code entry ---

func (m model) handleCodeSent(msg codeSentMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.resultMessage = ""
		m.resultErr = msg.err
		m.state = stateResult
		return m, nil
	}
	length := msg.length
	if length < 1 {
		length = m.codeCfg.Length
	}
	if m.state == stateCode && m.code.Controller() != nil && m.code.Controller().Len() == length {
		m.code.Reset()
	} else {
		m.code = codeinput.NewModel(length)
		m.code.Masked = m.codeCfg.Masked
	}
	m.codePhone = msg.phone
	m.codePurpose = msg.purpose
	m.verifying = false
	m.state = stateCode
	log.Printf("code sent (%s, %d digits)", msg.purpose, length)
	return m, nil
}

func (m model) handleCode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Either key abandons a verification still in flight.
	switch key {
	case "esc":
		m.verifySeq++
		m.verifying = false
		m.state = stateMenu
		return m, nil
	case "ctrl+r":
		m.verifySeq++
		m.verifying = false
		return m, m.sendCode(m.codePhone, m.codePurpose)
	}
	if m.verifying {
		return m, nil
	}
	var cmd tea.Cmd
	m.code, cmd = m.code.Update(msg)
	return m, cmd
}

func (m model) handleVerified(msg verifiedMsg) (tea.Model, tea.Cmd) {
	if m.state != stateCode || msg.seq != m.verifySeq {
		log.Printf("dropping stale verification %d", msg.seq)
		return m, nil
	}
	m.verifying = false
	if msg.err != nil {
		log.Printf("code rejected: %v", msg.err)
		switch {
		case api.IsCode(msg.err, api.CodeInvalidCode):
			m.code.SetError("Incorrect code, try again.")
		case api.IsCode(msg.err, api.CodeCodeExpired), api.IsCode(msg.err, api.CodeTooManyTries):
			m.code.SetError("Code no longer valid. Press ctrl+r for a new one.")
		default:
			m.code.SetError(fmt.Sprintf("Error: %v", msg.err))
		}
		return m, nil
	}

	switch m.codePurpose {
	case api.PurposeReset:
		m.resetToken = msg.resp.ResetToken
		m.startInput([]field{{label: "New password (8+ characters)", secret: true}})
		return m, nil
	default:
		m.user = msg.resp.User
		name := "there"
		if m.user != nil {
			name = m.user.Name
		}
		m.resultMessage = fmt.Sprintf("Phone verified. Welcome, %s!", name)
		m.resultErr = nil
		m.state = stateResult
		return m, nil
	}
}

// --- Pickers ---

func (m model) handlePicker(key string) (tea.Model, tea.Cmd) {
	n := m.pickerLen()
	switch key {
	case "up", "k", "left", "h":
		m.pick = m.stepPick(-1, n)
	case "down", "j", "right", "l":
		m.pick = m.stepPick(1, n)
	case "esc":
		if m.state == stateTimes {
			m.state = stateDates
			m.pick = indexOf(m.dates, m.date)
			return m, nil
		}
		m.state = stateMenu
		m.dataErr = nil
	case "enter":
		if m.dataErr != nil || n == 0 {
			m.state = stateMenu
			m.dataErr = nil
			return m, nil
		}
		return m.choosePick()
	}
	return m, nil
}

func (m model) pickerLen() int {
	switch m.state {
	case stateServices:
		return len(m.services)
	case stateTimes:
		return len(m.slots)
	case stateReviewPick:
		return len(m.bookings)
	}
	return 0
}

// stepPick moves the picker cursor, skipping booked time slots.
func (m model) stepPick(dir, n int) int {
	for i := m.pick + dir; i >= 0 && i < n; i += dir {
		if m.state != stateTimes || m.slots[i].Available {
			return i
		}
	}
	return m.pick
}

func (m model) choosePick() (tea.Model, tea.Cmd) {
	switch m.state {
	case stateServices:
		m.service = m.services[m.pick]
		m.dates = api.UpcomingDates(m.now(), bookingDays)
		m.pick = 0
		m.state = stateDates
	case stateTimes:
		if m.pick < 0 || !m.slots[m.pick].Available {
			return m, nil
		}
		m.slotTime = m.slots[m.pick].Time
		m.state = stateConfirm
	case stateReviewPick:
		m.review = m.bookings[m.pick]
		m.startInput([]field{{label: "Rating (1-5)", maxLen: 1}, {label: "Comment (optional)", optional: true, maxLen: 500}})
	}
	return m, nil
}

func (m model) handleDates(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "left", "h":
		if m.pick > 0 {
			m.pick--
		}
	case "right", "l":
		if m.pick < len(m.dates)-1 {
			m.pick++
		}
	case "up", "k":
		if m.pick >= 7 {
			m.pick -= 7
		}
	case "down", "j":
		if m.pick+7 < len(m.dates) {
			m.pick += 7
		}
	case "enter":
		m.date = m.dates[m.pick]
		m.slots = nil
		m.state = stateTimes
		return m, m.fetchSlots(m.date)
	case "esc":
		m.state = stateServices
		m.pick = 0
	}
	return m, nil
}

func (m model) handleConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		return m, m.executeAction()
	case "n", "N", "esc":
		m.state = stateMenu
		m.input.Clear()
	}
	return m, nil
}

func (m model) handleDataView(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "enter", "esc":
		m.state = stateMenu
		m.input.Clear()
		m.dataErr = nil
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func firstAvailable(slots []api.Slot) int {
	for i, s := range slots {
		if s.Available {
			return i
		}
	}
	return -1
}

func unreviewed(bookings []api.Booking) []api.Booking {
	out := make([]api.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Review == nil {
			out = append(out, b)
		}
	}
	return out
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return 0
}

// --- Commands ---

func (m model) login(phone, password string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.Login(context.Background(), api.LoginRequest{Phone: phone, Password: password})
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{message: fmt.Sprintf("Welcome back, %s!", resp.User.Name)}
	}
}

func (m model) signUp(name, phone, password string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.SignUp(context.Background(), api.SignUpRequest{Name: name, Phone: phone, Password: password})
		if err != nil {
			return codeSentMsg{err: err}
		}
		return codeSentMsg{phone: phone, purpose: api.PurposeSignup, length: resp.CodeLength}
	}
}

func (m model) sendCode(phone, purpose string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.SendCode(context.Background(), api.SendCodeRequest{Phone: phone, Purpose: purpose})
		if err != nil {
			return codeSentMsg{err: err}
		}
		return codeSentMsg{phone: phone, purpose: purpose, length: resp.CodeLength}
	}
}

func (m model) verifyCode(code string) tea.Cmd {
	phone, purpose, seq := m.codePhone, m.codePurpose, m.verifySeq
	return func() tea.Msg {
		resp, err := m.client.VerifyCode(context.Background(), api.VerifyCodeRequest{Phone: phone, Code: code, Purpose: purpose})
		return verifiedMsg{seq: seq, resp: resp, err: err}
	}
}

func (m model) resetPassword(password string) tea.Cmd {
	token := m.resetToken
	return func() tea.Msg {
		_, err := m.client.ResetPassword(context.Background(), api.ResetPasswordRequest{ResetToken: token, Password: password})
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{message: "Password updated. Sign in with your new password."}
	}
}

func (m model) fetchServices() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.ListServices(context.Background())
		if err != nil {
			return servicesMsg{err: err}
		}
		return servicesMsg{services: resp.Services}
	}
}

func (m model) fetchSlots(date string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.ListSlots(context.Background(), date)
		if err != nil {
			return slotsMsg{err: err}
		}
		return slotsMsg{slots: resp.Slots}
	}
}

func (m model) fetchBookings() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.ListBookings(context.Background())
		if err != nil {
			return bookingsMsg{err: err}
		}
		return bookingsMsg{bookings: resp.Bookings}
	}
}

func (m model) executeAction() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		switch m.action {
		case actionBook:
			b, err := m.client.CreateBooking(ctx, api.CreateBookingRequest{ServiceID: m.service.ID, Date: m.date, Time: m.slotTime})
			if err != nil {
				return resultMsg{err: err}
			}
			return resultMsg{message: fmt.Sprintf("Booked %s on %s at %s.\nReference: %s", b.Service, b.Date, b.Time, b.ID)}

		case actionReview:
			rating, err := strconv.Atoi(m.inputs[0])
			if err != nil || rating < 1 || rating > 5 {
				return resultMsg{err: fmt.Errorf("rating must be a number from 1 to 5")}
			}
			_, err = m.client.SubmitReview(ctx, m.review.ID, api.ReviewRequest{Rating: rating, Comment: m.inputs[1]})
			if err != nil {
				return resultMsg{err: err}
			}
			return resultMsg{message: fmt.Sprintf("Thanks! You rated your %s %d/5.", m.review.Service, rating)}
		}

		return resultMsg{err: fmt.Errorf("unknown action")}
	}
}

// isSafeTarget reports whether apiURL can be used without a production
// warning: loopback hosts always, anything else only when ENVIRONMENT names a
// non-production environment.
func isSafeTarget(apiURL string) bool {
	u, err := url.Parse(apiURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	return env != "" && env != "production"
}

func setupLogging(path string) (io.Closer, error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return nil, nil
	}
	f, err := tea.LogToFile(path, "salonctl")
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-h" || arg == "--help" {
			printUsage()
			os.Exit(0)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'salonctl --help' for usage information")
		os.Exit(1)
	}

	if !isSafeTarget(cfg.API.URL) {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render("WARNING: SALONCTL_API_URL is not a loopback address and ENVIRONMENT is unset or 'production'."))
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render("You may be booking real appointments."))
		fmt.Fprint(os.Stderr, ui.PromptStyle.Render("Continue? (y/N) "))

		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			os.Exit(0)
		}
	}

	closer, err := setupLogging(cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	client := api.NewClient(cfg.API.URL, cfg.API.Timeout)

	p := tea.NewProgram(initialModel(client, cfg.Code))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
