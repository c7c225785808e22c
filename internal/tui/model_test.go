package tui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"

	"github.com/glabrego/chirp-cli/internal/feed"
	"github.com/glabrego/chirp-cli/internal/tui/actions"
)

var testNow = time.Date(2026, 2, 11, 16, 0, 0, 0, time.UTC)

type fetchCall struct {
	author string
	cursor string
	limit  int
}

type fakeService struct {
	user     *feed.Author
	items    []feed.Item
	fetches  []fetchCall
	fetchErr error
	likeErr  error
	created  int
}

func newFakeService(n int, user *feed.Author) *fakeService {
	authors := []feed.Author{{ID: "u1", Name: "alice"}, {ID: "u2", Name: "bob"}}
	svc := &fakeService{user: user}
	for i := 0; i < n; i++ {
		a := authors[i%2]
		svc.items = append(svc.items, feed.Item{
			ID:        fmt.Sprintf("i%02d", i),
			Author:    a,
			Text:      fmt.Sprintf("item number %02d from %s", i, a.Name),
			CreatedAt: testNow.Add(-time.Duration(i) * time.Minute),
		})
	}
	return svc
}

func (f *fakeService) CurrentUser(context.Context) (*feed.Author, error) {
	return f.user, nil
}

func (f *fakeService) FetchPage(_ context.Context, key feed.FilterKey, cursor string, limit int) (feed.Page, error) {
	f.fetches = append(f.fetches, fetchCall{author: key.Author, cursor: cursor, limit: limit})
	if f.fetchErr != nil {
		return feed.Page{}, f.fetchErr
	}

	var filtered []feed.Item
	for _, item := range f.items {
		if key.Author == "" || item.Author.Name == key.Author {
			filtered = append(filtered, item)
		}
	}
	start := 0
	if cursor != "" {
		start = -1
		for i, item := range filtered {
			if item.ID == cursor {
				start = i
			}
		}
		if start < 0 {
			return feed.Page{}, errors.New("unknown cursor")
		}
	}
	end := min(start+limit, len(filtered))
	page := feed.Page{Items: append([]feed.Item(nil), filtered[start:end]...)}
	if end < len(filtered) {
		page.NextCursor = filtered[end].ID
	}
	return page, nil
}

func (f *fakeService) react(id string, dir feed.Direction) (feed.ReactionEvent, error) {
	if f.likeErr != nil {
		return feed.ReactionEvent{}, &feed.MutationError{Op: dir.String(), ItemID: id, Err: f.likeErr}
	}
	return feed.ReactionEvent{ItemID: id, ActingUserID: f.user.ID, Direction: dir}, nil
}

func (f *fakeService) Like(_ context.Context, id string) (feed.ReactionEvent, error) {
	return f.react(id, feed.Like)
}

func (f *fakeService) Unlike(_ context.Context, id string) (feed.ReactionEvent, error) {
	return f.react(id, feed.Unlike)
}

func (f *fakeService) CreateItem(_ context.Context, text string) (feed.Item, error) {
	f.created++
	item := feed.Item{ID: fmt.Sprintf("new-%d", f.created), Author: *f.user, Text: text, CreatedAt: testNow}
	f.items = append([]feed.Item{item}, f.items...)
	return item, nil
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("expected Model after update, got %T", next)
	}
	return model, cmd
}

// run executes cmd and feeds every resulting message back into m until no
// command is left.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			var next tea.Cmd
			m, next = update(t, m, msg)
			queue = append(queue, next)
		}
	}
	return m
}

func newTestModel(t *testing.T, svc *fakeService) Model {
	t.Helper()
	m := NewModel(svc, feed.DefaultConfig(), slogt.New(t))
	m.statusTTL = 0
	m.nowFn = func() time.Time { return testNow }
	m.copyFn = func(string) error { return nil }
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return run(t, m, m.Init())
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plainView(m Model) string {
	return ansiPattern.ReplaceAllString(m.View(), "")
}

func (m Model) items() []feed.Item {
	return m.sess.active.Items()
}

func TestModel_LoadsHeadAfterSession(t *testing.T) {
	svc := newFakeService(25, &feed.Author{ID: "u1", Name: "alice"})
	m := newTestModel(t, svc)

	if !m.started {
		t.Fatal("expected model to start after session load")
	}
	if got := len(m.items()); got != 10 {
		t.Fatalf("expected 10 items, got %d", got)
	}
	if len(svc.fetches) != 1 || svc.fetches[0] != (fetchCall{limit: 10}) {
		t.Fatalf("unexpected fetches: %+v", svc.fetches)
	}

	view := plainView(m)
	for _, want := range []string{"signed in as @alice", "> alice · 1m ago", "item number 00 from alice"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestModel_ScrollPastThresholdLoadsNextPageOnce(t *testing.T) {
	svc := newFakeService(25, nil)
	m := newTestModel(t, svc)

	m, cmd := update(t, m, runeKey("j"))
	if cmd != nil {
		t.Fatal("moving near the top must not fetch")
	}

	m, cmd = update(t, m, runeKey("G"))
	if cmd == nil {
		t.Fatal("expected fetch after scrolling to the bottom")
	}
	m, again := update(t, m, runeKey("G"))
	if again != nil {
		t.Fatal("expected no second fetch while one is in flight")
	}
	m, again = update(t, m, runeKey("n"))
	if again != nil {
		t.Fatal("expected manual load more to respect the pending fetch")
	}

	m = run(t, m, cmd)
	if got := len(m.items()); got != 20 {
		t.Fatalf("expected 20 items, got %d", got)
	}
	if len(svc.fetches) != 2 || svc.fetches[1].cursor != "i10" {
		t.Fatalf("unexpected fetches: %+v", svc.fetches)
	}
	if m.cursor != 9 {
		t.Fatalf("expected cursor to stay on item 9, got %d", m.cursor)
	}
}

func TestModel_ExhaustedFeed(t *testing.T) {
	svc := newFakeService(25, nil)
	m := newTestModel(t, svc)

	for i := 0; i < 2; i++ {
		var cmd tea.Cmd
		m, cmd = update(t, m, runeKey("G"))
		m = run(t, m, cmd)
	}
	if got := len(m.items()); got != 25 {
		t.Fatalf("expected 25 items, got %d", got)
	}

	m, cmd := update(t, m, runeKey("G"))
	if cmd != nil {
		t.Fatal("exhausted feed must not fetch")
	}
	if st := m.sess.active.Status(); st.State != feed.Exhausted || st.HasMore {
		t.Fatalf("unexpected status: %+v", st)
	}
	if !strings.Contains(plainView(m), "No more items to load") {
		t.Fatalf("expected end-of-feed notice:\n%s", plainView(m))
	}

	m, _ = update(t, m, runeKey("n"))
	if m.status != "No more items to load" {
		t.Fatalf("unexpected status after n: %q", m.status)
	}
	if len(svc.fetches) != 3 {
		t.Fatalf("expected 3 fetches, got %d", len(svc.fetches))
	}
}

func TestModel_FetchErrorThenRetry(t *testing.T) {
	svc := newFakeService(5, nil)
	svc.fetchErr = errors.New("network down")
	m := newTestModel(t, svc)

	if m.err == nil || !feed.IsFetchError(m.err) {
		t.Fatalf("expected fetch error, got %v", m.err)
	}
	if !strings.Contains(plainView(m), "press n to retry") {
		t.Fatalf("expected retry hint:\n%s", plainView(m))
	}

	svc.fetchErr = nil
	m, cmd := update(t, m, runeKey("n"))
	m = run(t, m, cmd)
	if got := len(m.items()); got != 5 || m.err != nil {
		t.Fatalf("expected recovery, got %d items and err %v", got, m.err)
	}
}

func TestModel_ScrollFetchErrorWaitsForUser(t *testing.T) {
	svc := newFakeService(25, nil)
	m := newTestModel(t, svc)

	m, cmd := update(t, m, runeKey("G"))
	if cmd == nil {
		t.Fatal("expected fetch after scrolling to the bottom")
	}
	svc.fetchErr = errors.New("network down")
	m = run(t, m, cmd)

	st := m.sess.active.Status()
	if st.State != feed.Error || st.Fetching || !feed.IsFetchError(st.Err) {
		t.Fatalf("expected visible error state, got %+v", st)
	}
	if len(m.sess.outbox) != 0 || len(svc.fetches) != 2 {
		t.Fatalf("expected no queued retry, got outbox %d and fetches %+v", len(m.sess.outbox), svc.fetches)
	}
	if !strings.Contains(plainView(m), "press n to retry") {
		t.Fatalf("expected retry hint:\n%s", plainView(m))
	}

	m, cmd = update(t, m, runeKey("k"))
	if cmd != nil || len(svc.fetches) != 2 {
		t.Fatalf("moving the cursor must not retry, got fetches %+v", svc.fetches)
	}

	svc.fetchErr = nil
	m, cmd = update(t, m, runeKey("n"))
	m = run(t, m, cmd)
	if got := len(m.items()); got != 20 || m.err != nil {
		t.Fatalf("expected recovery, got %d items and err %v", got, m.err)
	}
	if last := svc.fetches[len(svc.fetches)-1]; last.cursor != "i10" {
		t.Fatalf("expected retry from i10, got %+v", last)
	}
}

func TestModel_LikeReconcilesOnce(t *testing.T) {
	svc := newFakeService(3, &feed.Author{ID: "u1", Name: "alice"})
	m := newTestModel(t, svc)

	m, cmd := update(t, m, runeKey("l"))
	if cmd == nil {
		t.Fatal("expected like command")
	}
	m, again := update(t, m, runeKey("l"))
	if again != nil {
		t.Fatal("expected repeated like to wait for the first one")
	}
	m = run(t, m, cmd)

	item := m.items()[0]
	if !item.LikedByMe || item.LikeCount != 1 {
		t.Fatalf("expected liked item, got %+v", item)
	}
	if m.status != "Liked" {
		t.Fatalf("unexpected status: %q", m.status)
	}

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m = run(t, m, cmd)
	item = m.items()[0]
	if item.LikedByMe || item.LikeCount != 0 {
		t.Fatalf("expected unliked item, got %+v", item)
	}
}

func TestModel_FailedLikeLeavesItem(t *testing.T) {
	svc := newFakeService(3, &feed.Author{ID: "u1", Name: "alice"})
	svc.likeErr = errors.New("server said no")
	m := newTestModel(t, svc)

	m, cmd := update(t, m, runeKey("l"))
	m = run(t, m, cmd)
	if item := m.items()[0]; item.LikedByMe || item.LikeCount != 0 {
		t.Fatalf("failed like changed the item: %+v", item)
	}
	if m.err == nil || !feed.IsMutationError(m.err) {
		t.Fatalf("expected mutation error, got %v", m.err)
	}
	if len(m.sess.reacting) != 0 {
		t.Fatalf("expected pending reaction cleared, got %v", m.sess.reacting)
	}
}

func TestModel_SignedOutCannotLikeOrPost(t *testing.T) {
	m := newTestModel(t, newFakeService(3, nil))

	m, cmd := update(t, m, runeKey("l"))
	if cmd != nil || !strings.Contains(m.status, "Sign in to like") {
		t.Fatalf("expected sign-in hint, got status %q", m.status)
	}
	m, _ = update(t, m, runeKey("c"))
	if m.composing || !strings.Contains(m.status, "Sign in to post") {
		t.Fatalf("expected compose to be refused, got status %q", m.status)
	}
	if !strings.Contains(plainView(m), "signed out") {
		t.Fatalf("expected signed-out header:\n%s", plainView(m))
	}
}

func TestModel_AuthorRouteAndBack(t *testing.T) {
	svc := newFakeService(25, nil)
	m := newTestModel(t, svc)

	m, _ = update(t, m, runeKey("j"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)

	if m.key != feed.ByAuthor("bob", 10) {
		t.Fatalf("unexpected route: %v", m.key)
	}
	for _, item := range m.items() {
		if item.Author.Name != "bob" {
			t.Fatalf("unexpected author on bob's feed: %+v", item)
		}
	}
	if last := svc.fetches[len(svc.fetches)-1]; last.author != "bob" || last.cursor != "" {
		t.Fatalf("unexpected fetch for author feed: %+v", last)
	}
	if m.sess.monitor.Subscribers() != 1 {
		t.Fatalf("expected a single scroll subscriber, got %d", m.sess.monitor.Subscribers())
	}

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil {
		t.Fatal("returning to a cached feed must not fetch")
	}
	if m.key != feed.AllItems(10) || m.cursor != 1 {
		t.Fatalf("expected timeline with cursor restored, got %v cursor %d", m.key, m.cursor)
	}
	if len(svc.fetches) != 2 {
		t.Fatalf("expected 2 fetches, got %d", len(svc.fetches))
	}
}

func TestModel_ComposeValidatesAndRefreshes(t *testing.T) {
	svc := newFakeService(5, &feed.Author{ID: "u1", Name: "alice"})
	m := newTestModel(t, svc)

	m, _ = update(t, m, runeKey("c"))
	if !m.composing {
		t.Fatal("expected compose mode")
	}
	m, _ = update(t, m, runeKey("short"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || len(m.composeErrs) != 1 {
		t.Fatalf("expected validation error, got %v", m.composeErrs)
	}
	if !strings.Contains(plainView(m), "text: must be at least 10 characters") {
		t.Fatalf("expected validation message in view:\n%s", plainView(m))
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m, _ = update(t, m, runeKey("t but now long enough"))
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected create command")
	}
	m = run(t, m, cmd)

	if m.composing || m.draft != "" || m.status != "Posted" {
		t.Fatalf("unexpected compose state: composing=%v draft=%q status=%q", m.composing, m.draft, m.status)
	}
	items := m.items()
	if len(items) != 6 || items[0].ID != "new-1" || items[0].Text != "short but now long enough" {
		t.Fatalf("expected refreshed head with the new post, got %+v", items)
	}
	if len(svc.fetches) != 2 || svc.fetches[1].cursor != "" {
		t.Fatalf("expected refetch from the head, got %+v", svc.fetches)
	}
}

func TestModel_QuitReleasesSubscriptions(t *testing.T) {
	m := newTestModel(t, newFakeService(3, nil))
	if m.sess.monitor.Subscribers() != 1 {
		t.Fatalf("expected active controller subscribed, got %d", m.sess.monitor.Subscribers())
	}
	_, cmd := update(t, m, runeKey("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected QuitMsg")
	}
	if m.sess.monitor.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after quit, got %d", m.sess.monitor.Subscribers())
	}
}

func TestModel_IgnoresStaleCompletions(t *testing.T) {
	svc := newFakeService(25, &feed.Author{ID: "u1", Name: "alice"})
	m := newTestModel(t, svc)
	before := m.items()

	msgs := []tea.Msg{
		actions.PageLoadedMsg{Req: feed.FetchRequest{Key: feed.ByAuthor("nobody", 10)}, Page: feed.Page{Items: []feed.Item{{ID: "x"}}}},
		actions.PageLoadedMsg{Req: feed.FetchRequest{Key: m.key, Cursor: "i10", Limit: 10}, Page: feed.Page{Items: []feed.Item{{ID: "x"}}}},
		actions.PageErrorMsg{Req: feed.FetchRequest{Key: m.key, Cursor: "i10", Limit: 10}, Err: errors.New("late")},
		actions.ReactionSuccessMsg{Event: feed.ReactionEvent{ItemID: "i00", ActingUserID: "u2", Direction: feed.Like}, Status: "Liked"},
		actions.CopyErrorMsg{Err: errors.New("no clipboard")},
		clearStatusMsg{id: -1},
	}
	for _, msg := range msgs {
		var cmd tea.Cmd
		m, cmd = update(t, m, msg)
		if cmd != nil {
			t.Fatalf("%T produced an unexpected command", msg)
		}
	}

	if diff := cmp.Diff(before, m.items()); diff != "" {
		t.Fatalf("stale completions changed the feed (-want +got):\n%s", diff)
	}
	if m.err != nil {
		t.Fatalf("stale completions set an error: %v", m.err)
	}
	if m.status != "no clipboard" {
		t.Fatalf("unexpected status: %q", m.status)
	}
}

func TestModel_CopySelectedText(t *testing.T) {
	m := newTestModel(t, newFakeService(3, nil))
	var copied string
	m.copyFn = func(text string) error {
		copied = text
		return nil
	}

	m, _ = update(t, m, runeKey("j"))
	m, cmd := update(t, m, runeKey("y"))
	m = run(t, m, cmd)
	if copied != "item number 01 from bob" || m.status != "Copied to clipboard" {
		t.Fatalf("copied %q with status %q", copied, m.status)
	}
}
