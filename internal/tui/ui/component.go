package ui

// MenuHint describes a keyboard shortcut for display in the help menu.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // 1-9 jump shortcuts render in a different color
}

// Component is implemented by the screens managed through Pages. Hints
// feeds the help menu for whichever screen is on top.
type Component interface {
	Name() string
	Init()
	Start()
	Stop()
	Hints() []MenuHint
}
