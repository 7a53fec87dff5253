package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/require"
)

func TestViewer_KeyAssignments(t *testing.T) {
	tests := []struct {
		name     string
		binding  key.Binding
		expected []string
	}{
		{"Up uses k and up", Viewer.Up, []string{"k", "up"}},
		{"Down uses j and down", Viewer.Down, []string{"j", "down"}},
		{"Top uses g and home", Viewer.Top, []string{"g", "home"}},
		{"Bottom uses G and end", Viewer.Bottom, []string{"G", "end"}},
		{"Reload uses r", Viewer.Reload, []string{"r"}},
		{"Rehighlight uses R", Viewer.Rehighlight, []string{"R"}},
		{"ToggleLog uses ctrl+x", Viewer.ToggleLog, []string{"ctrl+x"}},
		{"Quit uses q and ctrl+c", Viewer.Quit, []string{"q", "ctrl+c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.binding.Keys())
		})
	}
}

func TestViewer_HelpText(t *testing.T) {
	for _, group := range Viewer.FullHelp() {
		for _, b := range group {
			help := b.Help()
			require.NotEmpty(t, help.Key)
			require.NotEmpty(t, help.Desc)
		}
	}
	require.NotEmpty(t, Viewer.ShortHelp())
}

func TestViewer_NoDuplicateKeys(t *testing.T) {
	seen := make(map[string]string)
	for _, group := range Viewer.FullHelp() {
		for _, b := range group {
			for _, k := range b.Keys() {
				prev, dup := seen[k]
				require.False(t, dup, "key %q bound to both %q and %q", k, prev, b.Help().Desc)
				seen[k] = b.Help().Desc
			}
		}
	}
}

func TestViewer_LogToggleNeedsDebug(t *testing.T) {
	require.False(t, Viewer.ToggleLog.Enabled())
	require.True(t, Viewer.WithDebug(true).ToggleLog.Enabled())
	require.False(t, Viewer.ToggleLog.Enabled(), "WithDebug must not mutate the shared map")
}
