package keys

import "github.com/gdamore/tcell/v2"

// Action is one keybinding: the key it answers to and what it does.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Visible     bool
}

// Matches reports whether the event triggers this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

type binding struct {
	name   string
	action *Action
}

// Registry holds keybindings scoped per view plus a global scope.
// Bindings keep registration order, so hint lists render stably.
type Registry struct {
	global []binding
	views  map[string][]binding
}

// NewRegistry creates an empty keybinding registry.
func NewRegistry() *Registry {
	return &Registry{
		views: make(map[string][]binding),
	}
}

// AddGlobal registers a keybinding active in every view.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.global = append(r.global, binding{name: name, action: action})
}

// AddView registers a keybinding active only in the named view.
func (r *Registry) AddView(view, name string, action *Action) {
	r.views[view] = append(r.views[view], binding{name: name, action: action})
}

// Hints returns visible binding descriptions for a view, view-scoped
// bindings first, in registration order.
func (r *Registry) Hints(view string) []string {
	var hints []string
	for _, b := range r.views[view] {
		if b.action.Visible {
			hints = append(hints, b.action.Description)
		}
	}
	for _, b := range r.global {
		if b.action.Visible {
			hints = append(hints, b.action.Description)
		}
	}
	return hints
}

// HandleEvent dispatches a key event to the first matching action,
// checking view-scoped bindings before global ones. Returns true when a
// handler ran.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, b := range r.views[view] {
		if b.action.Matches(ev) {
			b.action.Handler()
			return true
		}
	}
	for _, b := range r.global {
		if b.action.Matches(ev) {
			b.action.Handler()
			return true
		}
	}
	return false
}
