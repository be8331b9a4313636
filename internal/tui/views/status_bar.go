package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// StatusBar displays persistent session and connection status.
type StatusBar struct {
	*tview.TextView
	session    string
	connection string
	transient  string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetSession updates the session name display.
func (sb *StatusBar) SetSession(name string) {
	sb.session = name
	sb.render()
}

// SetConnection updates the connection state display.
func (sb *StatusBar) SetConnection(state string) {
	sb.connection = state
	sb.render()
}

// SetTransient sets a short-lived message such as a history load
// indicator. An empty string clears it.
func (sb *StatusBar) SetTransient(msg string) {
	sb.transient = msg
	sb.render()
}

// Refresh re-renders the bar, picking up the wall clock.
func (sb *StatusBar) Refresh() {
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	clock := time.Now().Format("15:04")

	line := fmt.Sprintf(" [::b]%s[-:-:-] | [%s]%s[-] | %s",
		sb.session, connectionColor(sb.connection), sb.connection, clock)
	if sb.transient != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", tview.Escape(sb.transient))
	}

	_, _ = fmt.Fprint(sb, line)
}

func connectionColor(state string) string {
	switch state {
	case "READY":
		return "green"
	case "SYNCING", "CONNECTING", "RECONNECTING", "BOOTING":
		return "yellow"
	case "DEGRADED", "ERROR":
		return "red"
	case "AUTH_REQUIRED":
		return "fuchsia"
	default:
		return "white"
	}
}
