package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/glabrego/chirp-cli/internal/chirp"
)

// ErrNotFound is returned when a user, token or item does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout is fixed width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const maxTimelineLimit = 50

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Init(ctx context.Context) error {
	const schema = `
PRAGMA foreign_keys = ON;
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  image TEXT NOT NULL DEFAULT '',
  token TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS items (
  id TEXT PRIMARY KEY,
  author_id TEXT NOT NULL REFERENCES users(id),
  text TEXT NOT NULL,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_items_author ON items(author_id, created_at DESC, id DESC);
CREATE TABLE IF NOT EXISTS likes (
  item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL REFERENCES users(id),
  created_at TEXT NOT NULL,
  PRIMARY KEY (item_id, user_id)
);
`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// UpsertUser creates the user or updates its profile and token.
func (r *Repository) UpsertUser(ctx context.Context, user chirp.User, token string) error {
	if user.ID == "" || user.Name == "" || token == "" {
		return errors.New("user id, name and token are required")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, name, image, token) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  image=excluded.image,
  token=excluded.token
`, user.ID, user.Name, user.Image, token)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return nil
}

func (r *Repository) UserByToken(ctx context.Context, token string) (chirp.User, error) {
	var u chirp.User
	err := r.db.QueryRowContext(ctx, `SELECT id, name, image FROM users WHERE token = ?`, token).Scan(&u.ID, &u.Name, &u.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return chirp.User{}, ErrNotFound
	}
	if err != nil {
		return chirp.User{}, fmt.Errorf("query user by token: %w", err)
	}
	return u, nil
}

// CreateItem stores a new item for authorID and returns it as the timeline
// would show it to its author.
func (r *Repository) CreateItem(ctx context.Context, authorID, text string) (chirp.Item, error) {
	var author chirp.User
	err := r.db.QueryRowContext(ctx, `SELECT id, name, image FROM users WHERE id = ?`, authorID).Scan(&author.ID, &author.Name, &author.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return chirp.Item{}, ErrNotFound
	}
	if err != nil {
		return chirp.Item{}, fmt.Errorf("query author %s: %w", authorID, err)
	}

	item := chirp.Item{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: r.now().UTC(),
		Author:    author,
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO items (id, author_id, text, created_at) VALUES (?, ?, ?, ?)`,
		item.ID, authorID, item.Text, item.CreatedAt.Format(timeLayout))
	if err != nil {
		return chirp.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return item, nil
}

type TimelineQuery struct {
	Author   string
	Cursor   string
	Limit    int
	ViewerID string
}

// ListTimeline returns up to q.Limit items, newest first, starting at the item
// named by q.Cursor. The returned cursor names the first item of the next
// page, or is empty when there is none.
func (r *Repository) ListTimeline(ctx context.Context, q TimelineQuery) ([]chirp.Item, string, error) {
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > maxTimelineLimit {
		q.Limit = maxTimelineLimit
	}

	var cursorAt string
	if q.Cursor != "" {
		err := r.db.QueryRowContext(ctx, `SELECT created_at FROM items WHERE id = ?`, q.Cursor).Scan(&cursorAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", fmt.Errorf("cursor %s: %w", q.Cursor, ErrNotFound)
		}
		if err != nil {
			return nil, "", fmt.Errorf("query cursor: %w", err)
		}
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT i.id, i.text, i.created_at, u.id, u.name, u.image,
  (SELECT COUNT(*) FROM likes l WHERE l.item_id = i.id),
  EXISTS(SELECT 1 FROM likes l WHERE l.item_id = i.id AND l.user_id = ?)
FROM items i
JOIN users u ON u.id = i.author_id
WHERE (? = '' OR u.name = ?)
  AND (? = '' OR i.created_at < ? OR (i.created_at = ? AND i.id <= ?))
ORDER BY i.created_at DESC, i.id DESC
LIMIT ?
`, q.ViewerID, q.Author, q.Author, q.Cursor, cursorAt, cursorAt, q.Cursor, q.Limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	items := make([]chirp.Item, 0, q.Limit+1)
	for rows.Next() {
		var item chirp.Item
		var createdAt string
		if err := rows.Scan(
			&item.ID,
			&item.Text,
			&createdAt,
			&item.Author.ID,
			&item.Author.Name,
			&item.Author.Image,
			&item.LikeCount,
			&item.LikedByMe,
		); err != nil {
			return nil, "", fmt.Errorf("scan item: %w", err)
		}
		item.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, "", fmt.Errorf("parse item created_at %q: %w", createdAt, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("rows iteration: %w", err)
	}

	var next string
	if len(items) > q.Limit {
		next = items[q.Limit].ID
		items = items[:q.Limit]
	}
	return items, next, nil
}

// Like records that userID likes itemID. Liking twice is not an error.
func (r *Repository) Like(ctx context.Context, itemID, userID string) error {
	if err := r.ensureItem(ctx, itemID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO likes (item_id, user_id, created_at) VALUES (?, ?, ?)`,
		itemID, userID, r.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// Unlike removes the like of userID on itemID, if any.
func (r *Repository) Unlike(ctx context.Context, itemID, userID string) error {
	if err := r.ensureItem(ctx, itemID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM likes WHERE item_id = ? AND user_id = ?`, itemID, userID); err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return nil
}

func (r *Repository) ensureItem(ctx context.Context, itemID string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM items WHERE id = ?`, itemID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query item %s: %w", itemID, err)
	}
	return nil
}
