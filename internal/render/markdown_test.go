package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkdown_Render(t *testing.T) {
	r := NewMarkdown()

	out, err := r.Render("# Title\n\nsome *text*")
	require.NoError(t, err)
	require.Contains(t, out, "<h1>Title</h1>")
	require.Contains(t, out, "<em>text</em>")
}

func TestMarkdown_Render_GFMTable(t *testing.T) {
	r := NewMarkdown()

	out, err := r.Render("| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)
	require.Contains(t, out, "<table>")
}

func TestMarkdown_Render_Empty(t *testing.T) {
	r := NewMarkdown()

	out, err := r.Render("")
	require.NoError(t, err)
	require.Equal(t, "", strings.TrimSpace(out))
}
