package feed

import "sync"

// Entry is an immutable snapshot of the pages cached for one FilterKey.
// Generation changes every time the entry is created or invalidated.
type Entry struct {
	Key        FilterKey
	Pages      []Page
	Generation uint64
}

// NextCursor returns the cursor to resume from and whether another page can
// be requested. An entry without pages resumes from the head of the feed.
func (e Entry) NextCursor() (string, bool) {
	if len(e.Pages) == 0 {
		return "", true
	}
	last := e.Pages[len(e.Pages)-1]
	return last.NextCursor, last.HasNext()
}

func (e Entry) Exhausted() bool {
	_, more := e.NextCursor()
	return !more
}

// Cache holds the fetched pages of every FilterKey seen by a view. Mutations
// never edit a published snapshot; they swap in a new one, so readers always
// observe a consistent entry.
type Cache struct {
	mu         sync.RWMutex
	entries    map[FilterKey]*Entry
	generation uint64
}

func NewCache() *Cache {
	return &Cache{entries: make(map[FilterKey]*Entry)}
}

// Entry returns the snapshot for key, creating an empty one on first access.
func (c *Cache) Entry(key FilterKey) Entry {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return *e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.entryLocked(key)
}

func (c *Cache) entryLocked(key FilterKey) *Entry {
	if e, ok := c.entries[key]; ok {
		return e
	}
	c.generation++
	e := &Entry{Key: key, Generation: c.generation}
	c.entries[key] = e
	return e
}

// AppendPage adds page to the end of the entry for key. It reports false and
// leaves the entry alone when a page fetched from the same cursor is already
// present.
func (c *Cache) AppendPage(key FilterKey, page Page) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	for _, p := range e.Pages {
		if p.Cursor == page.Cursor {
			return false
		}
	}

	pages := make([]Page, len(e.Pages), len(e.Pages)+1)
	copy(pages, e.Pages)
	page.Items = append([]Item(nil), page.Items...)
	pages = append(pages, page)
	c.entries[key] = &Entry{Key: key, Pages: pages, Generation: e.Generation}
	return true
}

// PatchItem replaces every cached copy of itemID under key with mutate(item).
// It reports whether the item was found; a miss leaves the cache untouched.
func (c *Cache) PatchItem(key FilterKey, itemID string, mutate func(Item) Item) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}

	var pages []Page
	for pi, p := range e.Pages {
		var items []Item
		for ii, item := range p.Items {
			if item.ID != itemID {
				continue
			}
			if items == nil {
				items = append([]Item(nil), p.Items...)
			}
			patched := mutate(item)
			patched.ID = itemID
			items[ii] = patched
		}
		if items == nil {
			continue
		}
		if pages == nil {
			pages = append([]Page(nil), e.Pages...)
		}
		pages[pi].Items = items
	}

	if pages == nil {
		return false
	}
	c.entries[key] = &Entry{Key: key, Pages: pages, Generation: e.Generation}
	return true
}

// Flatten returns the cached items for key in fetch order. Repeated ids keep
// their first position.
func (c *Cache) Flatten(key FilterKey) []Item {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	n := 0
	for _, p := range e.Pages {
		n += len(p.Items)
	}
	out := make([]Item, 0, n)
	seen := make(map[string]struct{}, n)
	for _, p := range e.Pages {
		for _, item := range p.Items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// Invalidate drops every page for key. The next read starts from the head of
// the feed under a new generation.
func (c *Cache) Invalidate(key FilterKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries[key] = &Entry{Key: key, Generation: c.generation}
}

func (c *Cache) Keys() []FilterKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]FilterKey, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Reset drops all entries.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[FilterKey]*Entry)
}
