package feed

import (
	"fmt"
	"log/slog"
)

type Direction int

const (
	Like Direction = iota + 1
	Unlike
)

func (d Direction) String() string {
	switch d {
	case Like:
		return "like"
	case Unlike:
		return "unlike"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ReactionEvent is the acknowledged outcome of a like or unlike request.
type ReactionEvent struct {
	ItemID       string
	ActingUserID string
	Direction    Direction
}

// ReactionResult is what a reaction request resolves to. Only a result with a
// nil Err is ever reconciled into the cache.
type ReactionResult struct {
	Event ReactionEvent
	Err   error
}

// Reconcile returns item as it looks after ev succeeded for the current
// user. Every acknowledged like adds one and every unlike removes one; the
// count never drops below zero.
func Reconcile(item Item, ev ReactionEvent) Item {
	switch ev.Direction {
	case Like:
		item.LikeCount++
		item.LikedByMe = true
	case Unlike:
		item.LikeCount--
		item.LikedByMe = false
	}
	if item.LikeCount < 0 {
		item.LikeCount = 0
	}
	return item
}

// Reconciler applies acknowledged reactions to cached items.
type Reconciler struct {
	cache  *Cache
	viewer string
	logger *slog.Logger
}

// NewReconciler returns a Reconciler that only trusts acknowledgements for
// viewerID. An empty viewerID accepts any acting user.
func NewReconciler(cache *Cache, viewerID string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{cache: cache, viewer: viewerID, logger: logger}
}

// Reconcile patches the item named by ev under key. It reports whether the
// cache changed.
func (r *Reconciler) Reconcile(key FilterKey, ev ReactionEvent) bool {
	if r.viewer != "" && ev.ActingUserID != r.viewer {
		r.logger.Warn("Ignoring reaction for another user", "item_id", ev.ItemID, "acting_user_id", ev.ActingUserID)
		return false
	}
	ok := r.cache.PatchItem(key, ev.ItemID, func(item Item) Item {
		return Reconcile(item, ev)
	})
	r.logger.Debug("Reconciled reaction", "key", key.String(), "item_id", ev.ItemID, "direction", ev.Direction.String(), "found", ok)
	return ok
}
