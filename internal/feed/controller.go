package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type State int

const (
	Idle State = iota
	Fetching
	Exhausted
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Exhausted:
		return "exhausted"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds the tunables of a Controller.
type Config struct {
	ScrollThresholdPercent float64
	PageSize               int
}

func DefaultConfig() Config {
	return Config{ScrollThresholdPercent: 90, PageSize: 10}
}

func (c Config) Validate() error {
	if c.ScrollThresholdPercent < 0 || c.ScrollThresholdPercent > 100 {
		return fmt.Errorf("scroll threshold must be between 0 and 100: %v", c.ScrollThresholdPercent)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page size must be positive: %d", c.PageSize)
	}
	return nil
}

// Fetcher retrieves one page of a feed. Calls with the same key and cursor
// must be safe to repeat.
type Fetcher interface {
	FetchPage(ctx context.Context, key FilterKey, cursor string, limit int) (Page, error)
}

// FetchRequest is a page fetch issued by a Controller. The completion must be
// handed back with the same request value.
type FetchRequest struct {
	Key        FilterKey
	Cursor     string
	Limit      int
	Generation uint64
}

// Do runs the request against f. Failures come back as *FetchError.
func (r FetchRequest) Do(ctx context.Context, f Fetcher) (Page, error) {
	page, err := f.FetchPage(ctx, r.Key, r.Cursor, r.Limit)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return Page{}, err
		}
		return Page{}, &FetchError{Key: r.Key, Cursor: r.Cursor, Err: err}
	}
	page.Cursor = r.Cursor
	return page, nil
}

// Status is the render-facing view of a Controller.
type Status struct {
	State    State
	Fetching bool
	HasMore  bool
	Err      error
}

// Controller drives pagination for one FilterKey. It is not safe for
// concurrent use: every method is expected to run on the single goroutine
// that owns the view, with fetch completions delivered back to it.
type Controller struct {
	key      FilterKey
	cfg      Config
	cache    *Cache
	recon    *Reconciler
	dispatch func(FetchRequest)
	logger   *slog.Logger

	state   State
	err     error
	pending *FetchRequest
	stop    func()

	lastPercent float64 // latest scroll notification
}

// NewController returns a Controller for key. dispatch is called for every
// page fetch the controller decides to issue; it must not block.
func NewController(key FilterKey, cache *Cache, cfg Config, recon *Reconciler, dispatch func(FetchRequest), logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if key.Limit < 1 {
		key.Limit = cfg.PageSize
	}
	if recon == nil {
		recon = NewReconciler(cache, "", logger)
	}
	c := &Controller{
		key:      key,
		cfg:      cfg,
		cache:    cache,
		recon:    recon,
		dispatch: dispatch,
		logger:   logger.With("key", key.String()),
	}
	c.syncState()
	return c
}

func (c *Controller) Key() FilterKey {
	return c.key
}

// Start fetches the head of the feed when nothing is cached for the key yet.
func (c *Controller) Start() bool {
	if len(c.cache.Entry(c.key).Pages) > 0 {
		c.syncState()
		return false
	}
	return c.tryFetch("start")
}

// Watch subscribes the controller to src, replacing any earlier subscription.
func (c *Controller) Watch(src ScrollSource) {
	c.Close()
	c.stop = src.Subscribe(func(percent float64) {
		c.HandleScroll(percent)
	})
}

// Close releases the scroll subscription.
func (c *Controller) Close() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

// HandleScroll requests the next page once the viewport is scrolled past the
// configured threshold. After a failed fetch, only a scroll to a new position
// retries; a repeated report of the same position does not.
func (c *Controller) HandleScroll(percent float64) bool {
	repeated := c.state == Error && percent == c.lastPercent
	c.lastPercent = percent
	if repeated || percent <= c.cfg.ScrollThresholdPercent {
		return false
	}
	return c.tryFetch("scroll")
}

// LoadMore requests the next page regardless of scroll position.
func (c *Controller) LoadMore() bool {
	return c.tryFetch("manual")
}

func (c *Controller) tryFetch(reason string) bool {
	if c.pending != nil {
		return false
	}
	entry := c.cache.Entry(c.key)
	cursor, more := entry.NextCursor()
	if !more {
		c.state = Exhausted
		return false
	}

	req := FetchRequest{Key: c.key, Cursor: cursor, Limit: c.key.Limit, Generation: entry.Generation}
	c.pending = &req
	c.state = Fetching
	c.err = nil
	c.logger.Debug("Fetching page", "cursor", cursor, "reason", reason)
	if c.dispatch != nil {
		c.dispatch(req)
	}
	return true
}

func (c *Controller) accepts(req FetchRequest) bool {
	if c.pending == nil || *c.pending != req {
		c.logger.Debug("Dropping stale fetch completion", "cursor", req.Cursor, "generation", req.Generation)
		return false
	}
	return true
}

// HandlePage applies a successful completion of req.
func (c *Controller) HandlePage(req FetchRequest, page Page) bool {
	if !c.accepts(req) {
		return false
	}
	c.pending = nil
	page.Cursor = req.Cursor
	if !c.cache.AppendPage(c.key, page) {
		c.logger.Warn("Page already cached", "cursor", req.Cursor)
	}
	c.syncState()
	c.logger.Debug("Page appended", "items", len(page.Items), "next_cursor", page.NextCursor, "state", c.state.String())
	return true
}

// HandleFetchError applies a failed completion of req. The cache is left as
// it was; the next scroll past the threshold retries.
func (c *Controller) HandleFetchError(req FetchRequest, err error) bool {
	if !c.accepts(req) {
		return false
	}
	c.pending = nil
	var fe *FetchError
	if !errors.As(err, &fe) {
		err = &FetchError{Key: req.Key, Cursor: req.Cursor, Err: err}
	}
	c.err = err
	c.state = Error
	c.logger.Warn("Fetch failed", "cursor", req.Cursor, "error", err)
	return true
}

// HandleReaction reconciles a reaction result into the cached items. Failed
// results leave the cache untouched.
func (c *Controller) HandleReaction(res ReactionResult) bool {
	if res.Err != nil {
		return false
	}
	return c.recon.Reconcile(c.key, res.Event)
}

// Invalidate drops everything cached for the key and forgets any fetch in
// flight. Call Start to load the head again.
func (c *Controller) Invalidate() {
	c.cache.Invalidate(c.key)
	c.pending = nil
	c.err = nil
	c.state = Idle
}

// Refresh invalidates the key and fetches its head.
func (c *Controller) Refresh() bool {
	c.Invalidate()
	return c.Start()
}

func (c *Controller) Items() []Item {
	return c.cache.Flatten(c.key)
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) Status() Status {
	entry := c.cache.Entry(c.key)
	return Status{
		State:    c.state,
		Fetching: c.pending != nil,
		HasMore:  !entry.Exhausted(),
		Err:      c.err,
	}
}

func (c *Controller) syncState() {
	if c.pending != nil {
		c.state = Fetching
		return
	}
	if c.cache.Entry(c.key).Exhausted() {
		c.state = Exhausted
		return
	}
	c.state = Idle
}
