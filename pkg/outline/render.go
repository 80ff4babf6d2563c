package outline

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/chazu/usdlive/pkg/scene"
)

// Styles controls how Render draws nodes.
type Styles struct {
	Name       lipgloss.Style
	Type       lipgloss.Style
	Badge      lipgloss.Style
	Broken     lipgloss.Style
	Enumerator lipgloss.Style
}

// DefaultStyles returns the terminal styles used by the CLI.
func DefaultStyles() Styles {
	return Styles{
		Name: lipgloss.NewStyle().
			Bold(true),
		Type: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C8CF8")),
		Badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9AA0A6")).
			Italic(true),
		Broken: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5534B")),
		Enumerator: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5C6370")).
			PaddingRight(1),
	}
}

// Render draws the outline as a terminal tree, one root per stage prim.
func Render(nodes []Node, st Styles) string {
	root := tree.New().
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(st.Enumerator)
	for _, n := range nodes {
		root.Child(renderNode(n, st))
	}
	return root.String()
}

func renderNode(n Node, st Styles) any {
	label := Label(n, st)
	if len(n.Children) == 0 {
		return label
	}
	t := tree.Root(label).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(st.Enumerator)
	for _, c := range n.Children {
		t.Child(renderNode(c, st))
	}
	return t
}

// Label formats one node as "Name (Type) [badges]".
func Label(n Node, st Styles) string {
	var b strings.Builder
	if n.Type == scene.TypeReference {
		b.WriteString(st.Broken.Render("@" + n.Name + "@"))
	} else {
		b.WriteString(st.Name.Render(n.Name))
	}
	b.WriteString(" ")
	b.WriteString(st.Type.Render(fmt.Sprintf("(%s)", n.Type)))
	if len(n.Badges) > 0 {
		parts := make([]string, len(n.Badges))
		for i, badge := range n.Badges {
			parts[i] = string(badge)
		}
		b.WriteString(" ")
		b.WriteString(st.Badge.Render("[" + strings.Join(parts, ", ") + "]"))
	}
	if n.Reason != "" {
		b.WriteString(" ")
		b.WriteString(st.Broken.Render(n.Reason))
	}
	return b.String()
}
