package view

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/glabrego/chirp-cli/internal/feed"
	"github.com/glabrego/chirp-cli/internal/render/text"
	tuitheme "github.com/glabrego/chirp-cli/internal/tui/theme"
)

const bodyIndent = "    "

type ItemBlockParams struct {
	Item   feed.Item
	Now    time.Time
	Self   bool
	Active bool
	Width  int
}

// RenderItemBlock renders one item as a header line, the wrapped body and a
// trailing blank separator.
func RenderItemBlock(p ItemBlockParams, th tuitheme.Theme) []string {
	marker := " "
	if p.Active {
		marker = ">"
	}

	heart := HeartLabel(p.Item)
	right := th.StyleHeart(p.Item.LikedByMe, heart)
	when := " · " + RelativeTimeLabel(p.Now, p.Item.CreatedAt)

	name := p.Item.Author.Name
	if name == "" {
		name = "unknown"
	}
	available := p.Width - 2 - lipgloss.Width(when) - 1 - lipgloss.Width(heart)
	name = truncate(name, available)

	left := marker + " " + th.StyleAuthor(p.Self, name) + th.MetaLabel.Render(when)
	gap := p.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	lines := []string{th.RenderActiveLine(p.Active, left+strings.Repeat(" ", gap)+right)}

	bodyWidth := p.Width - len(bodyIndent)
	if bodyWidth < 10 {
		bodyWidth = 10
	}
	for _, line := range text.Wrap(text.PlainText(p.Item.Text), bodyWidth) {
		lines = append(lines, bodyIndent+th.Body.Render(line))
	}
	return append(lines, "")
}

// HeartLabel is the like counter shown on the right of an item header.
func HeartLabel(item feed.Item) string {
	icon := "♡"
	if item.LikedByMe {
		icon = "♥"
	}
	return icon + " " + humanize.Comma(int64(item.LikeCount))
}

var shortRelTime = []humanize.RelTimeMagnitude{
	{D: 90 * time.Second, Format: "1m %s"},
	{D: 45 * time.Minute, Format: "%dm %s", DivBy: time.Minute},
	{D: 90 * time.Minute, Format: "1h %s"},
	{D: 22 * time.Hour, Format: "%dh %s", DivBy: time.Hour},
	{D: 36 * time.Hour, Format: "1d %s"},
	{D: 26 * humanize.Day, Format: "%dd %s", DivBy: humanize.Day},
	{D: 46 * humanize.Day, Format: "1M %s"},
	{D: 320 * humanize.Day, Format: "%dM %s", DivBy: humanize.Month},
	{D: 548 * humanize.Day, Format: "1y %s"},
	{D: humanize.LongTime, Format: "%dy %s", DivBy: humanize.Year},
}

// RelativeTimeLabel formats the age of then in the short form used on item
// headers: 1m, 5m, 1h, 3d, 1M, 1y. Times in the future count as now.
func RelativeTimeLabel(now, then time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	if then.IsZero() {
		return "unknown"
	}
	if then.After(now) {
		then = now
	}
	return humanize.CustomRelTime(then, now, "ago", "from now", shortRelTime)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 3 {
		return strings.Repeat(".", width)
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
