package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/chirp-cli/internal/feed"
	"github.com/glabrego/chirp-cli/internal/tui/actions"
	"github.com/glabrego/chirp-cli/internal/tui/platform"
	tuistate "github.com/glabrego/chirp-cli/internal/tui/state"
	tuitheme "github.com/glabrego/chirp-cli/internal/tui/theme"
	tuiview "github.com/glabrego/chirp-cli/internal/tui/view"
	"github.com/glabrego/chirp-cli/internal/validate"
)

type clearStatusMsg struct {
	id int
}

// position remembers where a route was left, by item so it survives reloads.
type position struct {
	itemID string
	top    int
}

// session holds the feed core shared by every copy of the Model. It is only
// touched from Update, which bubbletea runs on a single goroutine.
type session struct {
	cfg       feed.Config
	logger    *slog.Logger
	cache     *feed.Cache
	monitor   *feed.ScrollMonitor
	recon     *feed.Reconciler
	ctrls     map[feed.FilterKey]*feed.Controller
	positions map[feed.FilterKey]position
	reacting  map[string]bool
	outbox    []feed.FetchRequest
	active    *feed.Controller
}

func newSession(cfg feed.Config, logger *slog.Logger) *session {
	cache := feed.NewCache()
	return &session{
		cfg:       cfg,
		logger:    logger,
		cache:     cache,
		monitor:   feed.NewScrollMonitor(),
		recon:     feed.NewReconciler(cache, "", logger),
		ctrls:     make(map[feed.FilterKey]*feed.Controller),
		positions: make(map[feed.FilterKey]position),
		reacting:  make(map[string]bool),
	}
}

func (s *session) dispatch(req feed.FetchRequest) {
	s.outbox = append(s.outbox, req)
}

func (s *session) controller(key feed.FilterKey) *feed.Controller {
	if c, ok := s.ctrls[key]; ok {
		return c
	}
	c := feed.NewController(key, s.cache, s.cfg, s.recon, s.dispatch, s.logger)
	s.ctrls[key] = c
	return c
}

// activate makes key the controller fed by the scroll monitor. The previous
// controller stops listening but keeps its cached pages.
func (s *session) activate(key feed.FilterKey) *feed.Controller {
	if s.active != nil {
		s.active.Close()
	}
	c := s.controller(key)
	c.Watch(s.monitor)
	s.active = c
	s.logger.Debug("Feed activated", "key", c.Key().String())
	return c
}

func (s *session) close() {
	for _, c := range s.ctrls {
		c.Close()
	}
	s.monitor.Close()
	s.logger.Debug("Session closed", "cached_feeds", len(s.cache.Keys()))
	s.cache.Reset()
	s.active = nil
}

type Model struct {
	service actions.Service
	sess    *session
	theme   tuitheme.Theme
	val     *validate.Validator
	logger  *slog.Logger

	key         feed.FilterKey
	user        *feed.Author
	started     bool
	cursor      int
	top         int
	width       int
	height      int
	showHelp    bool
	composing   bool
	posting     bool
	draft       string
	composeErrs []validate.ValidationError
	status      string
	statusID    int
	statusTTL   time.Duration
	err         error
	copyFn      func(string) error
	nowFn       func() time.Time
}

func NewModel(service actions.Service, cfg feed.Config, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return Model{
		service:   service,
		sess:      newSession(cfg, logger),
		theme:     tuitheme.Default(),
		val:       validate.New(),
		logger:    logger,
		key:       feed.AllItems(cfg.PageSize),
		statusTTL: 3 * time.Second,
		copyFn:    platform.CopyToClipboard,
		nowFn:     time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	if m.service == nil {
		return nil
	}
	return actions.LoadSessionCmd(m.service)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.syncScroll()
		return m, m.drain()
	case tea.KeyMsg:
		if m.composing {
			return m.updateCompose(msg)
		}
		return m.updateList(msg)
	case actions.SessionLoadedMsg:
		m.user = msg.User
		if m.user != nil {
			m.sess.recon = feed.NewReconciler(m.sess.cache, m.user.ID, m.logger)
			m.logger.Info("Signed in", "user_id", m.user.ID, "name", m.user.Name)
		} else {
			m.logger.Info("Signed out")
		}
		return m.start()
	case actions.SessionErrorMsg:
		m.err = msg.Err
		m.logger.Warn("Could not load session", "error", msg.Err)
		return m.start()
	case actions.PageLoadedMsg:
		c, ok := m.sess.ctrls[msg.Req.Key]
		if !ok || !c.HandlePage(msg.Req, msg.Page) {
			return m, nil
		}
		m.logger.Debug("Page loaded", "key", msg.Req.Key.String(), "items", len(msg.Page.Items), "duration", msg.Duration)
		if msg.Req.Key == m.key {
			m.err = nil
			m.syncScroll()
		}
		return m, m.drain()
	case actions.PageErrorMsg:
		c, ok := m.sess.ctrls[msg.Req.Key]
		if !ok || !c.HandleFetchError(msg.Req, msg.Err) {
			return m, nil
		}
		if msg.Req.Key == m.key {
			m.err = msg.Err
			m.syncScroll()
		}
		return m, m.drain()
	case actions.ReactionSuccessMsg:
		delete(m.sess.reacting, msg.Event.ItemID)
		res := feed.ReactionResult{Event: msg.Event}
		for _, c := range m.sess.ctrls {
			c.HandleReaction(res)
		}
		m.err = nil
		return m.setStatus(msg.Status)
	case actions.ReactionErrorMsg:
		delete(m.sess.reacting, msg.ItemID)
		if !feed.IsMutationError(msg.Err) {
			msg.Err = &feed.MutationError{Op: "react", ItemID: msg.ItemID, Err: msg.Err}
		}
		m.logger.Warn("Reaction failed", "item_id", msg.ItemID, "error", msg.Err)
		m.err = msg.Err
		return m, nil
	case actions.CreateSuccessMsg:
		m.posting = false
		m.composing = false
		m.draft = ""
		m.composeErrs = nil
		m.err = nil
		m.invalidateAfterPost()
		fetch := m.drain()
		next, clear := m.setStatus("Posted")
		return next, tea.Batch(fetch, clear)
	case actions.CreateErrorMsg:
		m.posting = false
		m.err = msg.Err
		return m, nil
	case actions.CopySuccessMsg:
		m.err = nil
		return m.setStatus(msg.Status)
	case actions.CopyErrorMsg:
		return m.setStatus(msg.Err.Error())
	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.sess.close()
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	}
	if m.showHelp {
		if msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}
	if !m.started {
		return m, nil
	}

	items := m.sess.active.Items()
	switch msg.String() {
	case "up", "k":
		m.moveCursor(-1, len(items))
	case "down", "j":
		m.moveCursor(1, len(items))
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = tuistate.ClampCursor(len(items)-1, len(items))
	case "pgup", "ctrl+b":
		m.moveCursor(-tuistate.PageStep(m.height, m.status != ""), len(items))
	case "pgdown", "ctrl+f":
		m.moveCursor(tuistate.PageStep(m.height, m.status != ""), len(items))
	case "n":
		if !m.sess.active.LoadMore() {
			if !m.sess.active.Status().HasMore {
				return m.setStatus("No more items to load")
			}
			return m, nil
		}
		m.err = nil
		return m, m.drain()
	case "r":
		m.cursor, m.top = 0, 0
		m.err = nil
		m.sess.active.Refresh()
		m.syncScroll()
		return m, m.drain()
	case "l", " ":
		return m.toggleLike(items)
	case "enter":
		if len(items) == 0 {
			return m, nil
		}
		author := items[m.cursor].Author.Name
		if author == "" || author == m.key.Author {
			return m, nil
		}
		return m.openRoute(feed.ByAuthor(author, m.sess.cfg.PageSize))
	case "esc", "backspace":
		if m.key.Author == "" {
			return m, nil
		}
		return m.openRoute(feed.AllItems(m.sess.cfg.PageSize))
	case "c":
		if m.user == nil {
			return m.setStatus("Sign in to post (set CHIRP_TOKEN)")
		}
		m.composing = true
		m.composeErrs = nil
		return m, nil
	case "y":
		if len(items) == 0 {
			return m, nil
		}
		return m, actions.CopyTextCmd(items[m.cursor].Text, m.copyFn)
	default:
		return m, nil
	}
	m.syncScroll()
	return m, m.drain()
}

func (m Model) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.sess.close()
		return m, tea.Quit
	case tea.KeyEsc:
		m.composing = false
		m.composeErrs = nil
		return m, nil
	case tea.KeyEnter:
		if m.posting {
			return m, nil
		}
		if errs := m.val.Post(m.draft); len(errs) > 0 {
			m.composeErrs = errs
			return m, nil
		}
		m.composeErrs = nil
		m.posting = true
		return m, actions.CreateItemCmd(m.service, strings.TrimSpace(m.draft))
	case tea.KeyBackspace:
		if r := []rune(m.draft); len(r) > 0 {
			m.draft = string(r[:len(r)-1])
		}
		return m, nil
	case tea.KeySpace:
		m.draft += " "
		return m, nil
	case tea.KeyRunes:
		m.draft += string(msg.Runes)
		return m, nil
	}
	return m, nil
}

// start opens the timeline once the session is known.
func (m Model) start() (tea.Model, tea.Cmd) {
	if m.started {
		return m, nil
	}
	m.started = true
	c := m.sess.activate(m.key)
	c.Start()
	m.syncScroll()
	return m, m.drain()
}

func (m Model) openRoute(key feed.FilterKey) (tea.Model, tea.Cmd) {
	pos := position{top: m.top}
	if items := m.sess.active.Items(); len(items) > 0 {
		pos.itemID = items[m.cursor].ID
	}
	m.sess.positions[m.key] = pos

	m.key = key
	m.err = nil
	c := m.sess.activate(key)
	c.Start()
	pos = m.sess.positions[key]
	m.cursor, m.top = 0, pos.top
	if i := tuistate.ItemIndexByID(c.Items(), pos.itemID); i >= 0 {
		m.cursor = i
	}
	m.syncScroll()
	return m, m.drain()
}

func (m Model) toggleLike(items []feed.Item) (tea.Model, tea.Cmd) {
	if len(items) == 0 {
		return m, nil
	}
	if m.user == nil {
		return m.setStatus("Sign in to like items (set CHIRP_TOKEN)")
	}
	item := items[m.cursor]
	if m.sess.reacting[item.ID] {
		return m, nil
	}
	m.sess.reacting[item.ID] = true
	dir := feed.Like
	if item.LikedByMe {
		dir = feed.Unlike
	}
	return m, actions.ReactCmd(m.service, item.ID, dir)
}

// invalidateAfterPost drops the feeds a new post shows up in and reloads the
// active one from its head.
func (m *Model) invalidateAfterPost() {
	keys := []feed.FilterKey{feed.AllItems(m.sess.cfg.PageSize)}
	if m.user != nil {
		keys = append(keys, feed.ByAuthor(m.user.Name, m.sess.cfg.PageSize))
	}
	for _, key := range keys {
		delete(m.sess.positions, key)
		if c, ok := m.sess.ctrls[key]; ok {
			c.Invalidate()
		} else {
			m.sess.cache.Invalidate(key)
		}
		if key == m.key {
			m.cursor, m.top = 0, 0
			m.sess.active.Start()
		}
	}
	m.syncScroll()
}

func (m Model) setStatus(status string) (tea.Model, tea.Cmd) {
	m.status = status
	m.statusID++
	if m.statusTTL <= 0 {
		return m, nil
	}
	return m, clearStatusCmd(m.statusID, m.statusTTL)
}

func clearStatusCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

func (m *Model) moveCursor(delta, size int) {
	m.cursor = tuistate.ClampCursor(m.cursor+delta, size)
}

// drain turns the fetches the controllers issued during this update into
// commands.
func (m Model) drain() tea.Cmd {
	reqs := m.sess.outbox
	m.sess.outbox = nil
	if len(reqs) == 0 || m.service == nil {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		cmds = append(cmds, actions.FetchPageCmd(m.service, req))
	}
	return tea.Batch(cmds...)
}

type listLayout struct {
	lines   []string
	offsets []int
	heights []int
}

func (m Model) layout() listLayout {
	if m.sess.active == nil {
		return listLayout{}
	}
	items := m.sess.active.Items()
	var out listLayout
	out.heights = make([]int, len(items))
	for i, item := range items {
		block := tuiview.RenderItemBlock(tuiview.ItemBlockParams{
			Item:   item,
			Now:    m.nowFn(),
			Self:   m.user != nil && item.Author.ID == m.user.ID,
			Active: i == m.cursor,
			Width:  m.contentWidth(),
		}, m.theme)
		out.heights[i] = len(block)
		out.lines = append(out.lines, block...)
	}
	out.offsets, _ = tuistate.Offsets(out.heights)
	if end := tuiview.FeedEndLine(m.sess.active.Status(), len(items), m.theme); end != "" {
		out.lines = append(out.lines, "  "+end)
	}
	return out
}

// syncScroll keeps the selected item on screen and reports the resulting
// scroll position to the monitor, which may trigger the next page.
func (m *Model) syncScroll() {
	if m.sess.active == nil {
		return
	}
	l := m.layout()
	m.cursor = tuistate.ClampCursor(m.cursor, len(l.heights))
	height := m.bodyHeight()
	if len(l.heights) > 0 {
		start := l.offsets[m.cursor]
		end := start + l.heights[m.cursor]
		if m.cursor == len(l.heights)-1 {
			// the last item drags the end-of-feed line into view
			end = len(l.lines)
		}
		m.top = tuistate.FollowCursor(m.top, start, end, len(l.lines), height)
	} else {
		m.top = 0
	}
	m.sess.monitor.Update(m.top, len(l.lines), height)
}

func (m Model) contentWidth() int {
	if m.width > 0 {
		return m.width - 1
	}
	return 100
}

func (m Model) bodyHeight() int {
	if m.height > 0 {
		used := 6
		if h := m.height - used; h > 3 {
			return h
		}
		return 3
	}
	return 20
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(tuiview.Header(m.key, m.user, m.theme))
	b.WriteString("\n")
	b.WriteString(tuiview.Toolbar(m.user != nil, m.composing))
	b.WriteString("\n\n")

	switch {
	case m.showHelp:
		b.WriteString("Help (? to close)\n\n")
		b.WriteString(strings.Join(tuiview.HelpLines(), "\n"))
		b.WriteString("\n")
	case m.composing:
		b.WriteString(tuiview.ComposeBox(m.draft, m.composeErrs, m.contentWidth(), m.theme))
		b.WriteString("\n")
	case !m.started:
		b.WriteString("  Loading session...\n")
	default:
		l := m.layout()
		end := m.top + m.bodyHeight()
		if end > len(l.lines) {
			end = len(l.lines)
		}
		for i := m.top; i < end; i++ {
			b.WriteString(l.lines[i])
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(tuiview.Message(m.loading(), m.warning(), m.status, m.theme))
	b.WriteString("\n")
	b.WriteString(m.footer())
	b.WriteString("\n")
	return b.String()
}

func (m Model) loading() bool {
	if m.posting {
		return true
	}
	return m.sess.active != nil && m.sess.active.Status().Fetching
}

func (m Model) warning() string {
	if m.err == nil {
		return ""
	}
	return m.err.Error()
}

func (m Model) footer() string {
	if m.sess.active == nil {
		return fmt.Sprintf("feed %s", tuiview.RouteLabel(m.key))
	}
	return tuiview.Footer(m.key, m.sess.active.Status(), len(m.sess.active.Items()), m.sess.monitor.Percent(), m.theme)
}
