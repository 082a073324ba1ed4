// Package tui implements a terminal UI for ticket boards.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/twiced-technology-gmbh/ticketboard/internal/board"
	"github.com/twiced-technology-gmbh/ticketboard/internal/personnel"
	"github.com/twiced-technology-gmbh/ticketboard/internal/ticket"
)

// view represents the current screen state.
type view int

const (
	viewBoard view = iota
	viewConfirmDelete
	viewSearch
)

// Key and layout constants.
const (
	keyEsc = "esc"

	boardChrome  = 2 // blank line + status bar below the column area
	errorChrome  = 1 // extra line when an error or banner is displayed
	writeTimeout = 10 * time.Second
	tickInterval = time.Minute // deadline states roll over at midnight
)

var (
	keyMoveLeft  = key.NewBinding(key.WithKeys("<", "H", "shift+left"))
	keyMoveRight = key.NewBinding(key.WithKeys(">", "L", "shift+right"))
)

// Board is the top-level bubbletea model. Everything it shows comes from
// the reconciler; key presses only issue writes.
type Board struct {
	rec       *board.Reconciler
	people    *personnel.Directory
	name      string
	columns   []column
	total     int
	activeCol int
	activeRow int
	view      view
	width     int
	height    int
	writeErr  error
	now       func() time.Time

	filter      board.FilterOptions
	priorityIdx int // 0 = any, otherwise ticket.Priorities[idx-1]
	personIdx   int // 0 = any, otherwise personnelOptions()[idx-1]
	search      textinput.Model

	// Delete confirmation.
	deleteID    string
	deleteTitle string

	// Drag source set on mouse press.
	drag *dragState
}

// column is one status column after filtering.
type column struct {
	status    ticket.Status
	title     string
	tickets   []*ticket.Ticket
	scrollOff int // first visible row index
}

type dragState struct {
	col int
	row int
	id  string
}

// NewBoard creates a board model over rec. people may be nil.
func NewBoard(name string, rec *board.Reconciler, people *personnel.Directory) *Board {
	ti := textinput.New()
	ti.Placeholder = "search title, description, personnel"
	ti.Prompt = "/ "
	ti.CharLimit = 120

	b := &Board{rec: rec, people: people, name: name, now: time.Now, search: ti}
	b.refresh()
	return b
}

// SetNow overrides the clock used for deadline states (for testing).
func (b *Board) SetNow(fn func() time.Time) {
	b.now = fn
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return b.handleKey(msg)
	case tea.MouseMsg:
		return b.handleMouse(msg)
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.clampRow()
		return b, nil
	case SnapshotMsg:
		b.refresh()
		return b, nil
	case writeResultMsg:
		b.writeErr = msg.err
		b.refresh()
		return b, nil
	case TickMsg:
		return b, tickCmd()
	}
	return b, nil
}

// View implements tea.Model.
func (b *Board) View() string {
	if b.width == 0 {
		return "Loading..."
	}
	if b.view == viewConfirmDelete {
		return b.viewDeleteConfirm()
	}
	return b.viewBoard()
}

func (b *Board) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c"))) {
		return b, tea.Quit
	}

	switch b.view {
	case viewConfirmDelete:
		return b.handleDeleteKey(msg)
	case viewSearch:
		return b.handleSearchKey(msg)
	default:
		return b.handleBoardKey(msg)
	}
}

func (b *Board) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keyMoveLeft):
		return b, b.moveSelected(board.Left)
	case key.Matches(msg, keyMoveRight):
		return b, b.moveSelected(board.Right)
	}

	switch msg.String() {
	case "q", keyEsc:
		return b, tea.Quit
	case "h", "left":
		if b.activeCol > 0 {
			b.activeCol--
			b.clampRow()
		}
	case "l", "right":
		if b.activeCol < len(b.columns)-1 {
			b.activeCol++
			b.clampRow()
		}
	case "j", "down":
		col := b.currentColumn()
		if col != nil && b.activeRow < len(col.tickets)-1 {
			b.activeRow++
			b.ensureVisible()
		}
	case "k", "up":
		if b.activeRow > 0 {
			b.activeRow--
			b.ensureVisible()
		}
	case "d", "D":
		b.handleDeleteStart()
	case "/":
		b.view = viewSearch
		return b, b.search.Focus()
	case "p":
		b.priorityIdx = (b.priorityIdx + 1) % (len(ticket.Priorities) + 1)
		b.applyFilter()
	case "a":
		b.personIdx = (b.personIdx + 1) % (len(b.personnelOptions()) + 1)
		b.applyFilter()
	case "x":
		b.priorityIdx, b.personIdx = 0, 0
		b.search.SetValue("")
		b.applyFilter()
	}
	return b, nil
}

func (b *Board) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		b.search.Blur()
		b.view = viewBoard
		return b, nil
	case keyEsc:
		b.search.SetValue("")
		b.search.Blur()
		b.view = viewBoard
		b.applyFilter()
		return b, nil
	}
	var cmd tea.Cmd
	b.search, cmd = b.search.Update(msg)
	b.applyFilter()
	return b, cmd
}

func (b *Board) handleDeleteStart() {
	if t := b.selectedTicket(); t != nil {
		b.deleteID = t.ID
		b.deleteTitle = t.Title
		b.view = viewConfirmDelete
	}
}

func (b *Board) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		b.view = viewBoard
		id := b.deleteID
		return b, b.write(func(ctx context.Context) error {
			return b.rec.DeleteTicket(ctx, id)
		})
	case "n", "N", keyEsc, "q":
		b.view = viewBoard
	}
	return b, nil
}

func (b *Board) moveSelected(d board.Direction) tea.Cmd {
	t := b.selectedTicket()
	if t == nil {
		return nil
	}
	if _, ok := board.Adjacent(t.Status, d); !ok {
		return nil
	}
	id := t.ID
	return b.write(func(ctx context.Context) error {
		return b.rec.MoveTicket(ctx, id, d)
	})
}

// write runs fn off the update loop. The board changes only when the
// resulting snapshot arrives; the command reports just the outcome.
func (b *Board) write(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		return writeResultMsg{err: fn(ctx)}
	}
}

// handleMouse selects cards on click and turns a drag between columns
// into a move.
func (b *Board) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if b.view != viewBoard || msg.Button != tea.MouseButtonLeft {
		return b, nil
	}

	colIdx, rowIdx, inBoard := b.hit(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		b.drag = nil
		if !inBoard {
			return b, nil
		}
		b.activeCol = colIdx
		if rowIdx < 0 {
			b.clampRow()
			return b, nil
		}
		b.activeRow = rowIdx
		b.ensureVisible()
		b.drag = &dragState{col: colIdx, row: rowIdx, id: b.columns[colIdx].tickets[rowIdx].ID}
		return b, nil

	case tea.MouseActionRelease:
		drag := b.drag
		b.drag = nil
		if drag == nil {
			return b, nil
		}
		src := board.DropPosition{Column: b.columns[drag.col].status, Index: drag.row}
		var dst *board.DropPosition
		if inBoard {
			dst = &board.DropPosition{Column: b.columns[colIdx].status, Index: max(rowIdx, 0)}
		}
		if dst == nil || dst.Column == src.Column {
			return b, nil
		}
		id := drag.id
		return b, b.write(func(ctx context.Context) error {
			return b.rec.HandleDragDrop(ctx, src, dst, id)
		})
	}
	return b, nil
}

// hit maps screen coordinates to a column and card. row is -1 for the
// header or empty space; inBoard is false outside the column area.
func (b *Board) hit(x, y int) (col, row int, inBoard bool) {
	colWidth := b.columnWidth()
	if x < 0 || y < 0 || y >= b.height-b.chromeHeight() {
		return 0, -1, false
	}
	col = x / colWidth
	if col >= len(b.columns) {
		return 0, -1, false
	}

	c := &b.columns[col]
	lineY := y - 1
	if c.scrollOff > 0 {
		lineY--
	}
	if lineY < 0 {
		return col, -1, true
	}
	cardLine := 0
	for i := c.scrollOff; i < len(c.tickets); i++ {
		h := b.cardHeight(c.tickets[i], colWidth)
		if lineY < cardLine+h {
			return col, i, true
		}
		cardLine += h
	}
	return col, -1, true
}

// refresh rebuilds the visible columns from the reconciler's snapshot.
func (b *Board) refresh() {
	b.applyFilter()
}

func (b *Board) applyFilter() {
	b.filter = board.FilterOptions{Text: b.search.Value()}
	if b.priorityIdx > 0 {
		b.filter.Priority = ticket.Priorities[b.priorityIdx-1]
	}
	if opts := b.personnelOptions(); b.personIdx > 0 && b.personIdx <= len(opts) {
		b.filter.Personnel = opts[b.personIdx-1]
	} else {
		b.personIdx = 0
	}

	prev := make(map[ticket.Status]int, len(b.columns))
	for _, c := range b.columns {
		prev[c.status] = c.scrollOff
	}

	cols := board.FilterColumns(b.rec.Columns(), b.filter)
	b.columns = make([]column, len(cols))
	b.total = 0
	for i, c := range cols {
		b.columns[i] = column{status: c.Status, title: c.Title, tickets: c.Tickets, scrollOff: prev[c.Status]}
		b.total += len(c.Tickets)
	}
	if b.activeCol >= len(b.columns) {
		b.activeCol = 0
	}
	b.clampRow()
}

// personnelOptions lists names for the personnel filter: the directory when
// one is attached, else the names found on tickets.
func (b *Board) personnelOptions() []string {
	if b.people != nil {
		if names := b.people.Names(); len(names) > 0 {
			return names
		}
	}
	return board.PersonnelNames(b.rec.Tickets())
}

func (b *Board) currentColumn() *column {
	if b.activeCol >= 0 && b.activeCol < len(b.columns) {
		return &b.columns[b.activeCol]
	}
	return nil
}

func (b *Board) selectedTicket() *ticket.Ticket {
	col := b.currentColumn()
	if col == nil || len(col.tickets) == 0 {
		return nil
	}
	if b.activeRow >= 0 && b.activeRow < len(col.tickets) {
		return col.tickets[b.activeRow]
	}
	return nil
}

func (b *Board) clampRow() {
	col := b.currentColumn()
	if col == nil || len(col.tickets) == 0 {
		b.activeRow = 0
		if col != nil {
			col.scrollOff = 0
		}
		return
	}
	if b.activeRow >= len(col.tickets) {
		b.activeRow = len(col.tickets) - 1
	}
	if col.scrollOff >= len(col.tickets) {
		col.scrollOff = len(col.tickets) - 1
	}
	b.ensureVisible()
}

// chromeHeight returns the number of lines consumed by non-card elements below
// the column area: blank line + status bar (+ one line per error or banner).
func (b *Board) chromeHeight() int {
	h := boardChrome
	if b.writeErr != nil {
		h += errorChrome
	}
	if b.rec.Err() != nil {
		h += errorChrome
	}
	if b.view == viewSearch || b.search.Value() != "" {
		h++
	}
	return h
}

// visibleCardsForColumn returns the number of cards that fit in the column,
// accounting for scroll indicator lines that consume vertical space.
func (b *Board) visibleCardsForColumn(col *column, width int) int {
	budget := b.height - b.chromeHeight()
	if budget < 1 {
		return 1
	}

	// Always need 1 line for column header.
	avail := budget - 1
	if col.scrollOff > 0 {
		avail--
	}

	n := b.fitCardsInHeight(col, avail, width)
	if col.scrollOff+n < len(col.tickets) {
		n = max(b.fitCardsInHeight(col, avail-1, width), 1)
	}
	return n
}

// ensureVisible adjusts the active column's scroll offset so the
// selected row is within the visible window.
func (b *Board) ensureVisible() {
	col := b.currentColumn()
	if col == nil {
		return
	}
	w := b.columnWidth()

	for range len(col.tickets) + 1 {
		maxVis := b.visibleCardsForColumn(col, w)

		switch {
		case b.activeRow >= col.scrollOff+maxVis:
			col.scrollOff = b.activeRow - maxVis + 1
		case b.activeRow < col.scrollOff:
			col.scrollOff = b.activeRow
		default:
			return
		}
	}
}

func (b *Board) fitCardsInHeight(col *column, avail, width int) int {
	if len(col.tickets) == 0 || avail < 1 {
		return 1
	}

	used := 0
	count := 0
	for i := col.scrollOff; i < len(col.tickets); i++ {
		cardLines := b.cardHeight(col.tickets[i], width)
		if count > 0 && used+cardLines > avail {
			break
		}
		count++
		used += cardLines
		if used >= avail {
			break
		}
	}
	return max(count, 1)
}

// --- Messages ---

// SnapshotMsg tells the board that the reconciler has new state: a
// snapshot, a feed failure, or a change to the in-flight set.
type SnapshotMsg struct{}

type writeResultMsg struct{ err error }

// TickMsg is sent periodically to refresh deadline states.
type TickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return TickMsg{} })
}
