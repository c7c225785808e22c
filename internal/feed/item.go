package feed

import (
	"fmt"
	"time"
)

// Author is the subset of user profile data shown next to an item.
type Author struct {
	ID    string
	Name  string
	Image string
}

// Item is a single feed entry as held by the cache.
type Item struct {
	ID        string
	Author    Author
	Text      string
	CreatedAt time.Time
	LikeCount int
	LikedByMe bool
}

// Page is one fetched slice of a feed. Cursor is the position the page was
// fetched from ("" for the head of the feed) and NextCursor is where the next
// page resumes ("" when the feed is exhausted).
type Page struct {
	Items      []Item
	Cursor     string
	NextCursor string
}

func (p Page) HasNext() bool {
	return p.NextCursor != ""
}

// FilterKey identifies one feed query. Two keys are equal when they describe
// the same query, so it can be used directly as a map key.
type FilterKey struct {
	Author string
	Limit  int
}

func AllItems(limit int) FilterKey {
	return FilterKey{Limit: limit}
}

func ByAuthor(name string, limit int) FilterKey {
	return FilterKey{Author: name, Limit: limit}
}

func (k FilterKey) String() string {
	if k.Author == "" {
		return fmt.Sprintf("all/%d", k.Limit)
	}
	return fmt.Sprintf("author:%s/%d", k.Author, k.Limit)
}
