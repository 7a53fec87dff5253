// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// ViewerKeyMap defines the keybindings for the document viewer.
type ViewerKeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding

	// Actions
	Reload      key.Binding
	Rehighlight key.Binding
	ToggleLog   key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// Viewer holds the active viewer bindings.
var Viewer = DefaultViewerKeyMap()

// DefaultViewerKeyMap returns the default keybindings.
func DefaultViewerKeyMap() ViewerKeyMap {
	return ViewerKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "b", "ctrl+u"),
			key.WithHelp("b/pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", " ", "f", "ctrl+d"),
			key.WithHelp("f/pgdn", "page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),

		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Rehighlight: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "re-highlight"),
		),
		ToggleLog: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "toggle log"),
			key.WithDisabled(),
		),

		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns keybindings for the mini help view.
func (k ViewerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Reload, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k ViewerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom}, // Navigation
		{k.Reload, k.Rehighlight, k.ToggleLog},                // Actions
		{k.Help, k.Quit},                                      // General
	}
}

// WithDebug returns a copy of k with the log toggle enabled.
func (k ViewerKeyMap) WithDebug(enabled bool) ViewerKeyMap {
	k.ToggleLog.SetEnabled(enabled)
	return k
}
