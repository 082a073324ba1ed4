package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/ticketboard/internal/board"
	"github.com/twiced-technology-gmbh/ticketboard/internal/date"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

// --- Styles ---

var (
	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	activeColumnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("226")).
			Padding(0, 1)

	overdueCardStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("196")).
				Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("124")).
			Bold(true)

	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	personStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("44"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	priorityStyles = map[ticket.Priority]lipgloss.Style{
		ticket.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		ticket.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		ticket.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}

	deadlineStyles = map[board.DeadlineState]lipgloss.Style{
		board.DeadlineOverdue:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		board.DeadlineToday:    lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		board.DeadlineUpcoming: dimStyle,
	}

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2) //nolint:mnd // dialog padding
)

// --- View rendering ---

func (b *Board) viewBoard() string {
	colWidth := b.columnWidth()

	renderedCols := make([]string, len(b.columns))
	for i, col := range b.columns {
		renderedCols[i] = b.renderColumn(i, col, colWidth)
	}
	boardView := lipgloss.JoinHorizontal(lipgloss.Top, renderedCols...)

	// Clamp from the bottom (keeping headers at the top) and pad if needed.
	targetHeight := b.height - b.chromeHeight()
	if targetHeight > 0 {
		actual := strings.Count(boardView, "\n") + 1
		if actual > targetHeight {
			viewLines := strings.SplitN(boardView, "\n", targetHeight+1)
			boardView = strings.Join(viewLines[:targetHeight], "\n")
		} else if actual < targetHeight {
			boardView += strings.Repeat("\n", targetHeight-actual)
		}
	}

	parts := []string{boardView, ""}
	if b.view == viewSearch || b.search.Value() != "" {
		parts = append(parts, b.search.View())
	}
	if err := b.rec.Err(); err != nil {
		parts = append(parts, bannerStyle.Render(truncate("Live updates unavailable: "+err.Error(), b.width)))
	}
	if b.writeErr != nil {
		parts = append(parts, errorStyle.Render(truncate("Error: "+b.writeErr.Error(), b.width)))
	}
	parts = append(parts, b.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (b *Board) columnWidth() int {
	if b.width == 0 || len(b.columns) == 0 {
		return 30 //nolint:mnd // default column width
	}
	w := b.width / len(b.columns)
	const maxColWidth = 75
	return max(min(w, maxColWidth), 1)
}

func (b *Board) renderColumn(colIdx int, col column, width int) string {
	const headerPad = 2
	headerText := truncate(fmt.Sprintf("%s (%d)", col.title, len(col.tickets)), width-headerPad)

	header := columnHeaderStyle.Width(width).Render(headerText)
	if colIdx == b.activeCol {
		header = activeColumnHeaderStyle.Width(width).Render(headerText)
	}

	maxVis := b.visibleCardsForColumn(&col, width)
	start := min(col.scrollOff, len(col.tickets))
	end := min(start+maxVis, len(col.tickets))

	parts := []string{header}
	if start > 0 {
		parts = append(parts, dimStyle.Width(width).Render(truncate(fmt.Sprintf("  ↑ %d more", start), width)))
	}
	if len(col.tickets) == 0 {
		parts = append(parts, dimStyle.Width(width).Render("  (empty)"))
	}
	for rowIdx := start; rowIdx < end; rowIdx++ {
		active := colIdx == b.activeCol && rowIdx == b.activeRow
		parts = append(parts, b.renderCard(col.tickets[rowIdx], active, width))
	}
	if end < len(col.tickets) {
		indicator := fmt.Sprintf("  ↓ %d more", len(col.tickets)-end)
		parts = append(parts, dimStyle.Width(width).Render(truncate(indicator, width)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (b *Board) renderCard(t *ticket.Ticket, active bool, width int) string {
	content := strings.Join(b.cardContentLines(t, width), "\n")

	style := cardStyle
	if t.Status != ticket.StatusDone && board.DeadlineStatus(t, b.now()) == board.DeadlineOverdue {
		style = overdueCardStyle
	}
	if active {
		style = activeCardStyle
	}
	return style.Width(width - 2).Render(content) //nolint:mnd // border width
}

func (b *Board) cardHeight(t *ticket.Ticket, width int) int {
	return len(b.cardContentLines(t, width)) + 2 //nolint:mnd // top and bottom borders
}

func (b *Board) cardContentLines(t *ticket.Ticket, width int) []string {
	const cardChrome = 4 // border (2) + padding (2)
	cardWidth := max(width-cardChrome, 1)
	now := b.now()

	idLabel := dimStyle.Render("#" + t.ID)
	if action := b.rec.Pending(t.ID); action != "" {
		idLabel += " " + pendingStyle.Render(action+"…")
	}
	lines := []string{
		idLabel,
		truncate(t.Title, cardWidth),
	}

	meta := styledPriority(t.Priority) + " " + dimStyle.Render(string(t.IssueType))
	if t.Personnel != "" {
		meta += " " + personStyle.Render(truncate(t.Personnel, cardWidth/2)) //nolint:mnd // half the card
	}
	lines = append(lines, meta)

	switch {
	case t.Status == ticket.StatusDone && t.CompletedAt != nil:
		lines = append(lines, dimStyle.Render("done "+date.Format(t.CompletedAt, now.Location())))
	case t.Deadline != nil:
		state := board.DeadlineStatus(t, now)
		label := "due " + date.Format(t.Deadline, now.Location())
		if state != board.DeadlineUpcoming {
			label += " (" + state.String() + ")"
		}
		lines = append(lines, deadlineStyles[state].Render(label))
	}
	return lines
}

func styledPriority(p ticket.Priority) string {
	if st, ok := priorityStyles[p]; ok {
		return st.Render(string(p))
	}
	return string(p)
}

func (b *Board) renderStatusBar() string {
	status := fmt.Sprintf(" %s | %d tickets", b.name, b.total)
	if f := b.filterSummary(); f != "" {
		status += " | " + f
	}
	status += " | </>:move d:del /:search p:priority a:personnel x:clear q:quit"
	return statusBarStyle.Render(truncate(status, b.width))
}

func (b *Board) filterSummary() string {
	var parts []string
	if b.filter.Priority != "" {
		parts = append(parts, "priority="+string(b.filter.Priority))
	}
	if b.filter.Personnel != "" {
		parts = append(parts, "personnel="+b.filter.Personnel)
	}
	if b.filter.Text != "" {
		parts = append(parts, fmt.Sprintf("search=%q", b.filter.Text))
	}
	return strings.Join(parts, " ")
}

func (b *Board) viewDeleteConfirm() string {
	content := errorStyle.Render("Delete ticket?") + "\n\n" +
		fmt.Sprintf("  #%s: %s", b.deleteID, b.deleteTitle) + "\n\n" +
		dimStyle.Render("y:yes  n:no")

	return dialogStyle.Render(content)
}

func truncate(s string, maxLen int) string {
	if maxLen < 4 { //nolint:mnd // minimum length for truncation
		maxLen = 4
	}
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	// Slice by runes to avoid breaking multi-byte UTF-8 characters.
	runes := []rune(s)
	target := min(maxLen-3, len(runes)) //nolint:mnd // room for "..."
	for target > 0 && lipgloss.Width(string(runes[:target])) > maxLen-3 {
		target--
	}
	return string(runes[:target]) + "..."
}
