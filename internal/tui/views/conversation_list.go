package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"zaptui/internal/tui/ui"
)

// ConversationList is the main conversation list view. It renders the
// display names published by the core and maps the cursor back to list
// indices, so selection stays stable under filtering.
type ConversationList struct {
	*tview.Table
	theme  *ui.Theme
	names  []string
	filter string
	rows   []int // visible row offset -> index into names
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{
		Table: table,
		theme: theme,
	}
}

// Name implements Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Init implements Component.
func (cl *ConversationList) Init() {}

// Start implements Component.
func (cl *ConversationList) Start() {}

// Stop implements Component.
func (cl *ConversationList) Stop() {}

// Hints implements Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "s", Description: "Search"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Update replaces the listed names and re-renders.
func (cl *ConversationList) Update(names []string) {
	cl.names = names
	cl.render()
}

// SetFilter sets the active filter text and re-renders.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ConversationList) ClearFilter() {
	cl.filter = ""
	cl.render()
}

func (cl *ConversationList) render() {
	cl.Clear()
	cl.rows = cl.rows[:0]

	cl.SetCell(0, 0, tview.NewTableCell(" NAME").
		SetSelectable(false).
		SetTextColor(cl.theme.TableHeaderFg).
		SetBackgroundColor(cl.theme.TableHeaderBg).
		SetAttributes(tcell.AttrBold).
		SetExpansion(1))

	row := 1
	for i, name := range cl.names {
		if cl.filter != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(cl.filter)) {
			continue
		}
		cell := tview.NewTableCell(fmt.Sprintf(" %2d  %s", i+1, tview.Escape(sanitizeForTerminal(name)))).
			SetExpansion(1).
			SetTextColor(cl.theme.FgColor)
		cl.SetCell(row, 0, cell)
		cl.rows = append(cl.rows, i)
		row++
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", row-1, len(cl.names), cl.filter))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.names)))
	}
}

// SelectedIndex returns the list index of the cursor row, or -1 when the
// cursor is not on a conversation.
func (cl *ConversationList) SelectedIndex() int {
	row, _ := cl.GetSelection()
	offset := row - 1 // account for header
	if offset < 0 || offset >= len(cl.rows) {
		return -1
	}
	return cl.rows[offset]
}

// IndexByOrdinal returns the list index of the Nth visible conversation
// (1-based), or -1 when out of range.
func (cl *ConversationList) IndexByOrdinal(n int) int {
	if n < 1 || n > len(cl.rows) {
		return -1
	}
	return cl.rows[n-1]
}
