// Package ui holds the reusable widgets of the terminal UI.
package ui

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // shown in the numeric key color
}

// Component is implemented by every page of the TUI.
type Component interface {
	Name() string
	Hints() []MenuHint
}
