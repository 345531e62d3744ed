package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/salon-booking/cli/internal/api"
	"github.com/salon-booking/cli/internal/ui"
)

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render("Salon Booking"))
	if m.client.Authenticated() {
		b.WriteString(ui.DimStyle.Render("  • signed in"))
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateMenu:
		b.WriteString(m.viewMenu())
	case stateInput:
		b.WriteString(m.viewInput())
	case stateCode:
		b.WriteString(m.viewCode())
	case stateServices:
		b.WriteString(m.viewServices())
	case stateDates:
		b.WriteString(m.viewDates())
	case stateTimes:
		b.WriteString(m.viewTimes())
	case stateConfirm:
		b.WriteString(m.viewConfirm())
	case stateResult:
		b.WriteString(m.viewResult())
	case stateBookings:
		b.WriteString(m.viewBookings())
	case stateReviewPick:
		b.WriteString(m.viewReviewPick())
	case stateWorking:
		b.WriteString(ui.DimStyle.Render("Working..."))
	}

	b.WriteString("\n")
	return b.String()
}

func (m model) viewMenu() string {
	var b strings.Builder

	for i, item := range menuItems {
		if item.isHeader {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("  ")
			b.WriteString(ui.HeaderStyle.Render(item.label))
			b.WriteString("\n")
			continue
		}

		cursor := "  "
		style := ui.DimStyle
		if i == m.cursor {
			cursor = "> "
			style = ui.ActiveStyle
		}
		b.WriteString(style.Render(cursor + item.label))
		b.WriteString("\n")
	}

	b.WriteString(ui.DimStyle.Render("\n↑/↓ navigate • enter select • q quit"))
	return b.String()
}

func (m model) viewInput() string {
	var b strings.Builder

	for i := 0; i < len(m.inputs) && i < len(m.fields); i++ {
		val := m.inputs[i]
		if m.fields[i].secret {
			val = strings.Repeat("•", len([]rune(val)))
		}
		b.WriteString(ui.DimStyle.Render(fmt.Sprintf("  %s: %s", m.fields[i].label, val)))
		b.WriteString("\n")
	}

	if m.inputField >= len(m.fields) {
		return b.String()
	}
	f := m.fields[m.inputField]
	b.WriteString(ui.PromptStyle.Render(fmt.Sprintf("Enter %s: ", f.label)))
	if f.secret {
		b.WriteString(m.input.Masked())
	} else {
		b.WriteString(m.input.Value)
	}
	b.WriteString("█")
	b.WriteString(ui.DimStyle.Render("\n\nenter confirm • esc back"))
	return b.String()
}

func (m model) viewCode() string {
	var b strings.Builder
	b.WriteString(ui.PromptStyle.Render(fmt.Sprintf("Enter the %d-digit code sent to %s", m.code.Controller().Len(), m.codePhone)))
	b.WriteString("\n\n")
	b.WriteString(m.code.View())
	if m.verifying {
		b.WriteString(ui.DimStyle.Render("\n\nVerifying..."))
	}
	b.WriteString(ui.DimStyle.Render("\n\n0-9 type • ⌫ delete • ←/→ move • ctrl+r resend • esc back"))
	return b.String()
}

func (m model) viewServices() string {
	var b strings.Builder

	if m.dataErr != nil {
		return m.viewDataErr()
	}
	if m.services == nil {
		b.WriteString(ui.DimStyle.Render("Loading..."))
		return b.String()
	}

	b.WriteString("Choose a service\n\n")
	for i, s := range m.services {
		cursor := "  "
		style := ui.DimStyle
		if i == m.pick {
			cursor = "> "
			style = ui.ActiveStyle
		}
		line := fmt.Sprintf("%s%-12s %3d min  %s", cursor, s.Name, s.Minutes, formatPrice(s.PriceCts))
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	b.WriteString(ui.DimStyle.Render("\n↑/↓ navigate • enter select • esc back"))
	return b.String()
}

func (m model) viewDates() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s: pick a day\n\n", m.service.Name))

	chips := make([]ui.Chip, len(m.dates))
	for i, d := range m.dates {
		chips[i] = ui.Chip{Label: formatDay(d)}
	}
	b.WriteString(ui.RenderChips(chips, m.pick, 7))
	b.WriteString(ui.DimStyle.Render("\n\n←/→/↑/↓ move • enter select • esc back"))
	return b.String()
}

func (m model) viewTimes() string {
	var b strings.Builder

	if m.dataErr != nil {
		return m.viewDataErr()
	}
	if m.slots == nil {
		b.WriteString(ui.DimStyle.Render("Loading..."))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%s on %s: pick a time\n\n", m.service.Name, formatDay(m.date)))
	if firstAvailable(m.slots) < 0 {
		b.WriteString(ui.DimStyle.Render("Fully booked. Try another day."))
		b.WriteString(ui.DimStyle.Render("\n\nesc back"))
		return b.String()
	}

	chips := make([]ui.Chip, len(m.slots))
	for i, s := range m.slots {
		chips[i] = ui.Chip{Label: s.Time, Disabled: !s.Available}
	}
	b.WriteString(ui.RenderChips(chips, m.pick, 6))
	b.WriteString(ui.DimStyle.Render("\n\n←/→ move • enter select • esc back"))
	return b.String()
}

func (m model) viewConfirm() string {
	var b strings.Builder
	var prompt string

	switch m.action {
	case actionBook:
		prompt = fmt.Sprintf("Book %s on %s at %s?", m.service.Name, formatDay(m.date), m.slotTime)
	case actionReview:
		prompt = fmt.Sprintf("Rate your %s on %s %s/5?", m.review.Service, formatDay(m.review.Date), m.inputs[0])
	}

	b.WriteString(ui.PromptStyle.Render(prompt))
	b.WriteString(ui.DimStyle.Render("\n\ny confirm • n cancel"))
	return b.String()
}

func (m model) viewResult() string {
	var b strings.Builder
	if m.resultErr != nil {
		b.WriteString(ui.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.resultErr)))
	} else {
		b.WriteString(ui.SuccessStyle.Render(m.resultMessage))
	}
	b.WriteString(ui.DimStyle.Render("\n\nenter continue • q quit"))
	return b.String()
}

func (m model) viewDataErr() string {
	var b strings.Builder
	b.WriteString(ui.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.dataErr)))
	b.WriteString(ui.DimStyle.Render("\n\nenter continue • esc back"))
	return b.String()
}

func (m model) viewBookings() string {
	var b strings.Builder

	if m.dataErr != nil {
		b.WriteString(ui.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.dataErr)))
		b.WriteString(ui.DimStyle.Render("\n\nenter continue • q quit"))
		return b.String()
	}

	if m.bookings == nil {
		b.WriteString(ui.DimStyle.Render("Loading..."))
		return b.String()
	}

	if len(m.bookings) == 0 {
		b.WriteString(ui.DimStyle.Render("No bookings yet."))
		b.WriteString(ui.DimStyle.Render("\n\nenter continue • q quit"))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("My Bookings (%d)\n\n", len(m.bookings)))

	columns := []ui.Column{
		{Header: "Date", Width: 16},
		{Header: "Time", Width: 6},
		{Header: "Service", Width: 12},
		{Header: "Review", Width: 8},
		{Header: "Reference", Width: 36},
	}

	rows := make([][]string, len(m.bookings))
	for i, bk := range m.bookings {
		review := "-"
		if bk.Review != nil {
			review = strings.Repeat("★", bk.Review.Rating)
		}
		rows[i] = []string{formatDay(bk.Date), bk.Time, bk.Service, review, bk.ID}
	}

	b.WriteString(ui.RenderTable(columns, rows))
	b.WriteString(ui.DimStyle.Render("\nenter continue • q quit"))
	return b.String()
}

func (m model) viewReviewPick() string {
	var b strings.Builder

	if m.dataErr != nil {
		return m.viewDataErr()
	}
	if m.bookings == nil {
		b.WriteString(ui.DimStyle.Render("Loading..."))
		return b.String()
	}
	if len(m.bookings) == 0 {
		b.WriteString(ui.DimStyle.Render("Nothing left to review."))
		b.WriteString(ui.DimStyle.Render("\n\nenter continue"))
		return b.String()
	}

	b.WriteString("Which visit would you like to review?\n\n")
	for i, bk := range m.bookings {
		cursor := "  "
		style := ui.DimStyle
		if i == m.pick {
			cursor = "> "
			style = ui.ActiveStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%s %s  %s", cursor, formatDay(bk.Date), bk.Time, bk.Service)))
		b.WriteString("\n")
	}
	b.WriteString(ui.DimStyle.Render("\n↑/↓ navigate • enter select • esc back"))
	return b.String()
}

func formatDay(date string) string {
	t, err := time.Parse(api.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Mon 02 Jan")
}

func formatPrice(cents int) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func printUsage() {
	heading := ui.TitleStyle.Render
	label := ui.PromptStyle.Render
	dim := ui.DimStyle.Render

	fmt.Println(heading("salonctl") + dim(" - book salon appointments from your terminal"))
	fmt.Println()
	fmt.Println(heading("Usage:"))
	fmt.Println("  salonctl [flags]")
	fmt.Println()
	fmt.Println("  Launches an interactive TUI for your salon account and bookings.")
	fmt.Println()
	fmt.Println(heading("Flags:"))
	fmt.Println("  " + label("-h, --help") + "    Show this help message")
	fmt.Println()
	fmt.Println(heading("Environment:"))
	fmt.Println("  " + label("SALONCTL_CONFIG") + "        Config file path (default ~/.config/salonctl/config.toml)")
	fmt.Println("  " + label("SALONCTL_API_URL") + "       API base URL (default http://localhost:8787)")
	fmt.Println("  " + label("SALONCTL_CODE_LENGTH") + "   Verification code digits (default 6)")
	fmt.Println("  " + label("SALONCTL_CODE_MASKED") + "   Hide code digits as they are typed")
	fmt.Println("  " + label("SALONCTL_LOG_FILE") + "      Write debug logs to this file")
	fmt.Println("  " + label("ENVIRONMENT") + "            Non-production name silences the remote target warning")
	fmt.Println()
	fmt.Println(heading("Commands (interactive):"))
	fmt.Println()
	fmt.Println("  " + label("Account"))
	fmt.Println("    Sign in                       " + dim("Phone and password"))
	fmt.Println("    Create account                " + dim("Register and confirm your phone with a code"))
	fmt.Println("    Forgot password               " + dim("Reset your password with a code"))
	fmt.Println("    Sign out                      " + dim("Forget the current session"))
	fmt.Println()
	fmt.Println("  " + label("Bookings"))
	fmt.Println("    Book an appointment           " + dim("Pick a service, day and time"))
	fmt.Println("    My bookings                   " + dim("List your appointments"))
	fmt.Println("    Review a visit                " + dim("Rate a past appointment"))
}
