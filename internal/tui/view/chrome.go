package view

import (
	"fmt"
	"strings"

	"github.com/glabrego/chirp-cli/internal/feed"
	"github.com/glabrego/chirp-cli/internal/render/text"
	tuitheme "github.com/glabrego/chirp-cli/internal/tui/theme"
	"github.com/glabrego/chirp-cli/internal/validate"
)

func RouteLabel(key feed.FilterKey) string {
	if key.Author == "" {
		return "timeline"
	}
	return "@" + key.Author
}

func Header(key feed.FilterKey, user *feed.Author, th tuitheme.Theme) string {
	who := th.MetaLabel.Render("signed out")
	if user != nil {
		who = th.MetaLabel.Render("signed in as ") + th.StyleAuthor(true, "@"+user.Name)
	}
	return th.Title.Render("chirp") + " " + th.ModePill.Render(RouteLabel(key)) + "  " + who
}

func Toolbar(signedIn, composing bool) string {
	if composing {
		return "enter post | esc cancel | backspace delete"
	}
	if !signedIn {
		return "j/k move | enter author | esc back | n more | r refresh | y copy | ? help | q quit"
	}
	return "j/k move | l like | enter author | esc back | c compose | n more | r refresh | y copy | ? help | q quit"
}

func HelpLines() []string {
	return []string{
		"j/k, up/down   move between items",
		"g/G            first/last item",
		"pgup/pgdown    jump a screen",
		"l, space       like or unlike the selected item",
		"enter          open the author's feed",
		"esc            back to the timeline",
		"c              write a new post",
		"n              load more now",
		"r              refresh the current feed",
		"y              copy the selected item's text",
		"?              toggle this help",
		"q, ctrl+c      quit",
	}
}

// FeedEndLine is shown below the last item.
func FeedEndLine(st feed.Status, shown int, th tuitheme.Theme) string {
	switch {
	case st.Fetching && shown == 0:
		return th.Notice.Render("Loading...")
	case st.Fetching:
		return th.Notice.Render("Loading more...")
	case st.Err != nil:
		return th.StateWarn.Render("Could not load more items. Scroll or press n to retry.")
	case !st.HasMore && shown == 0:
		return th.Notice.Render("Nothing here yet")
	case !st.HasMore:
		return th.Notice.Render("No more items to load")
	default:
		return ""
	}
}

func Footer(key feed.FilterKey, st feed.Status, shown int, scrollPercent float64, th tuitheme.Theme) string {
	parts := []string{
		th.MetaLabel.Render("feed") + " " + th.MetaValue.Render(RouteLabel(key)),
		th.MetaValue.Render(fmt.Sprintf("%d shown", shown)),
		th.MetaLabel.Render("scroll") + " " + th.MetaValue.Render(fmt.Sprintf("%.0f%%", scrollPercent)),
		th.MetaLabel.Render("state") + " " + th.MetaValue.Render(st.State.String()),
	}
	return strings.Join(parts, " • ")
}

func Message(loading bool, warning, status string, th tuitheme.Theme) string {
	state := "idle"
	if loading {
		state = "loading"
	}
	if warning != "" {
		state = "warning"
	}
	main := "Ready"
	if status != "" {
		main = status
	} else if warning != "" {
		main = warning
	}
	stateLabel := th.StateIdle.Render("state")
	switch state {
	case "warning":
		stateLabel = th.StateWarn.Render("state")
	case "loading":
		stateLabel = th.StateLoad.Render("state")
	}
	return fmt.Sprintf("%s: %s | %s", stateLabel, state, th.MetaValue.Render(main))
}

// ComposeBox renders the new-post editor with a live character count and any
// validation errors from the last submit.
func ComposeBox(draft string, errs []validate.ValidationError, width int, th tuitheme.Theme) string {
	inner := width - 4
	if inner < 10 {
		inner = 10
	}
	lines := text.Wrap(draft+"_", inner)
	count := len([]rune(strings.TrimSpace(draft)))
	lines = append(lines, "", th.MetaLabel.Render(fmt.Sprintf("%d/%d", count, validate.MaxPostLength)))
	for _, e := range errs {
		lines = append(lines, th.StateWarn.Render(e.Error()))
	}
	return th.Compose.Width(inner).Render(strings.Join(lines, "\n"))
}
