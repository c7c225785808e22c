package theme

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Title      lipgloss.Style
	ModePill   lipgloss.Style
	Author     lipgloss.Style
	AuthorSelf lipgloss.Style
	Body       lipgloss.Style
	ActiveLine lipgloss.Style
	MetaLabel  lipgloss.Style
	MetaValue  lipgloss.Style
	HeartOn    lipgloss.Style
	HeartOff   lipgloss.Style
	Notice     lipgloss.Style
	Compose    lipgloss.Style
	StateIdle  lipgloss.Style
	StateWarn  lipgloss.Style
	StateLoad  lipgloss.Style
}

func Default() Theme {
	cpMauve := lipgloss.Color("#cba6f7")
	cpRed := lipgloss.Color("#f38ba8")
	cpPeach := lipgloss.Color("#fab387")
	cpYellow := lipgloss.Color("#f9e2af")
	cpGreen := lipgloss.Color("#a6e3a1")
	cpTeal := lipgloss.Color("#94e2d5")
	cpLavender := lipgloss.Color("#b4befe")
	cpText := lipgloss.Color("#cdd6f4")
	cpSubtext1 := lipgloss.Color("#bac2de")
	cpOverlay1 := lipgloss.Color("#7f849c")
	cpSurface0 := lipgloss.Color("#313244")

	return Theme{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		ModePill:   lipgloss.NewStyle().Foreground(cpLavender).Background(cpSurface0).Padding(0, 1),
		Author:     lipgloss.NewStyle().Bold(true).Foreground(cpTeal),
		AuthorSelf: lipgloss.NewStyle().Bold(true).Foreground(cpYellow),
		Body:       lipgloss.NewStyle().Foreground(cpText),
		ActiveLine: lipgloss.NewStyle().Background(cpSurface0).Foreground(cpText),
		MetaLabel:  lipgloss.NewStyle().Foreground(cpOverlay1),
		MetaValue:  lipgloss.NewStyle().Foreground(cpSubtext1),
		HeartOn:    lipgloss.NewStyle().Bold(true).Foreground(cpRed),
		HeartOff:   lipgloss.NewStyle().Foreground(cpOverlay1),
		Notice:     lipgloss.NewStyle().Italic(true).Foreground(cpOverlay1),
		Compose: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cpLavender).
			Padding(0, 1),
		StateIdle: lipgloss.NewStyle().Foreground(cpGreen),
		StateWarn: lipgloss.NewStyle().Foreground(cpRed),
		StateLoad: lipgloss.NewStyle().Foreground(cpPeach),
	}
}

func (t Theme) StyleHeart(liked bool, label string) string {
	if liked {
		return t.HeartOn.Render(label)
	}
	return t.HeartOff.Render(label)
}

func (t Theme) StyleAuthor(self bool, name string) string {
	if name == "" {
		return name
	}
	if self {
		return t.AuthorSelf.Render(name)
	}
	return t.Author.Render(name)
}

func (t Theme) RenderActiveLine(active bool, line string) string {
	if !active {
		return line
	}
	return t.ActiveLine.Render(line)
}
