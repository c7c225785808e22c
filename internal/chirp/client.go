package chirp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// User is the public profile of an account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Item is a posted message as returned by the API.
type Item struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Author    User      `json:"author"`
	LikeCount int       `json:"like_count"`
	LikedByMe bool      `json:"liked_by_me"`
}

// TimelinePage is one page of the timeline. A nil NextCursor means there is
// nothing left to fetch.
type TimelinePage struct {
	Items      []Item  `json:"items"`
	NextCursor *string `json:"next_cursor"`
}

// Reaction acknowledges a like or unlike.
type Reaction struct {
	ItemID       string `json:"item_id"`
	ActingUserID string `json:"acting_user_id"`
}

type TimelineQuery struct {
	Author string
	Cursor string
	Limit  int
}

func (q TimelineQuery) values() url.Values {
	v := make(url.Values)
	if q.Author != "" {
		v.Set("author", q.Author)
	}
	if q.Cursor != "" {
		v.Set("cursor", q.Cursor)
	}
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}

// StatusError is returned for any non-success HTTP response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

const sharedRequestTimeout = 15 * time.Second

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	group   singleflight.Group
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

func (c *Client) HasToken() bool {
	return c.token != ""
}

// CurrentUser returns the account behind the client's token.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	if c.token == "" {
		return User{}, ErrUnauthorized
	}
	var user User
	if err := c.do(ctx, "current user", http.MethodGet, "/me", nil, http.StatusOK, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Timeline fetches one page. Identical queries already in flight share a
// single request; each caller still gives up on its own ctx.
func (c *Client) Timeline(ctx context.Context, q TimelineQuery) (TimelinePage, error) {
	if q.Limit < 1 {
		q.Limit = 10
	}
	path := "/timeline?" + q.values().Encode()
	ch := c.group.DoChan(path, func() (any, error) {
		// the shared request must not die with the caller that started it
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedRequestTimeout)
		defer cancel()

		var page TimelinePage
		if err := c.do(sharedCtx, "list timeline", http.MethodGet, path, nil, http.StatusOK, &page); err != nil {
			return TimelinePage{}, err
		}
		return page, nil
	})

	select {
	case <-ctx.Done():
		return TimelinePage{}, fmt.Errorf("list timeline: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return TimelinePage{}, res.Err
		}
		return res.Val.(TimelinePage), nil
	}
}

func (c *Client) Like(ctx context.Context, itemID string) (Reaction, error) {
	return c.react(ctx, itemID, "like")
}

func (c *Client) Unlike(ctx context.Context, itemID string) (Reaction, error) {
	return c.react(ctx, itemID, "unlike")
}

func (c *Client) react(ctx context.Context, itemID, action string) (Reaction, error) {
	var r Reaction
	path := "/items/" + url.PathEscape(itemID) + "/" + action
	if err := c.do(ctx, action+" item", http.MethodPost, path, nil, http.StatusOK, &r); err != nil {
		return Reaction{}, err
	}
	return r, nil
}

func (c *Client) CreateItem(ctx context.Context, text string) (Item, error) {
	body, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return Item{}, fmt.Errorf("encode create item request: %w", err)
	}
	var item Item
	if err := c.do(ctx, "create item", http.MethodPost, "/items", bytes.NewReader(body), http.StatusCreated, &item); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, wantStatus int, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
