package state

import "github.com/glabrego/chirp-cli/internal/feed"

func ClampCursor(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	if cursor >= size {
		return size - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

// PageStep is how many items pgup/pgdown move, given the terminal height.
func PageStep(height int, hasStatus bool) int {
	if height <= 0 {
		return 10
	}
	headerLines := 6
	if hasStatus {
		headerLines += 2
	}
	step := (height - headerLines) / 3
	if step < 1 {
		step = 1
	}
	return step
}

// Offsets returns the first line of every block and the total line count.
func Offsets(heights []int) ([]int, int) {
	out := make([]int, len(heights))
	total := 0
	for i, h := range heights {
		out[i] = total
		total += h
	}
	return out, total
}

// ClampTop keeps a scroll offset inside the content.
func ClampTop(top, total, height int) int {
	maxTop := total - height
	if maxTop < 0 {
		maxTop = 0
	}
	if top > maxTop {
		return maxTop
	}
	if top < 0 {
		return 0
	}
	return top
}

// FollowCursor returns the smallest change to top that keeps the lines
// [start, end) inside a viewport of height lines. A block taller than the
// viewport is aligned on its first line.
func FollowCursor(top, start, end, total, height int) int {
	if height <= 0 {
		return 0
	}
	switch {
	case start < top:
		top = start
	case end > top+height:
		top = end - height
		if top > start {
			top = start
		}
	}
	return ClampTop(top, total, height)
}

func ItemIndexByID(items []feed.Item, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
