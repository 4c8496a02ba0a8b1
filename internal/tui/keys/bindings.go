// Package keys dispatches key events to actions scoped per page.
package keys

import "github.com/gdamore/tcell/v2"

// Global is the scope consulted after the page scope.
const Global = ""

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Label returns how the key is shown to users.
func (a *Action) Label() string {
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	return tcell.KeyNames[a.Key]
}

// Registry holds keybindings organized by scope, in registration order.
type Registry struct {
	scopes map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{scopes: make(map[string][]*Action)}
}

// Add registers an action under scope. Use Global for bindings active on every page.
func (r *Registry) Add(scope string, action *Action) {
	r.scopes[scope] = append(r.scopes[scope], action)
}

// Rune is shorthand for a printable key binding.
func (r *Registry) Rune(scope string, ch rune, description string, handler func()) {
	r.Add(scope, &Action{Key: tcell.KeyRune, Rune: ch, Description: description, Handler: handler})
}

// Key is shorthand for a special key binding.
func (r *Registry) Key(scope string, key tcell.Key, description string, handler func()) {
	r.Add(scope, &Action{Key: key, Description: description, Handler: handler})
}

// Actions returns the actions of scope followed by the global ones.
func (r *Registry) Actions(scope string) []*Action {
	out := append([]*Action{}, r.scopes[scope]...)
	if scope != Global {
		out = append(out, r.scopes[Global]...)
	}
	return out
}

// HandleEvent dispatches ev to the first matching action of scope, then of
// the global scope. It reports whether a handler ran.
func (r *Registry) HandleEvent(scope string, ev *tcell.EventKey) bool {
	for _, a := range r.Actions(scope) {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	return false
}
