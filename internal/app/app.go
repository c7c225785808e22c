package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/glabrego/chirp-cli/internal/chirp"
	"github.com/glabrego/chirp-cli/internal/feed"
)

type ChirpClient interface {
	HasToken() bool
	CurrentUser(ctx context.Context) (chirp.User, error)
	Timeline(ctx context.Context, q chirp.TimelineQuery) (chirp.TimelinePage, error)
	Like(ctx context.Context, itemID string) (chirp.Reaction, error)
	Unlike(ctx context.Context, itemID string) (chirp.Reaction, error)
	CreateItem(ctx context.Context, text string) (chirp.Item, error)
}

// Service adapts the remote API to the feed core.
type Service struct {
	client ChirpClient
}

func NewService(client ChirpClient) *Service {
	return &Service{client: client}
}

// CurrentUser returns the signed-in author, or nil when signed out.
func (s *Service) CurrentUser(ctx context.Context) (*feed.Author, error) {
	if !s.client.HasToken() {
		return nil, nil
	}
	u, err := s.client.CurrentUser(ctx)
	if errors.Is(err, chirp.ErrUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load current user: %w", err)
	}
	author := toAuthor(u)
	return &author, nil
}

// FetchPage implements feed.Fetcher.
func (s *Service) FetchPage(ctx context.Context, key feed.FilterKey, cursor string, limit int) (feed.Page, error) {
	res, err := s.client.Timeline(ctx, chirp.TimelineQuery{
		Author: key.Author,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		return feed.Page{}, &feed.FetchError{Key: key, Cursor: cursor, Err: err}
	}

	page := feed.Page{
		Items:  make([]feed.Item, 0, len(res.Items)),
		Cursor: cursor,
	}
	for _, item := range res.Items {
		page.Items = append(page.Items, toItem(item))
	}
	if res.NextCursor != nil {
		page.NextCursor = *res.NextCursor
	}
	return page, nil
}

func (s *Service) Like(ctx context.Context, itemID string) (feed.ReactionEvent, error) {
	return s.react(ctx, itemID, feed.Like, s.client.Like)
}

func (s *Service) Unlike(ctx context.Context, itemID string) (feed.ReactionEvent, error) {
	return s.react(ctx, itemID, feed.Unlike, s.client.Unlike)
}

func (s *Service) react(ctx context.Context, itemID string, dir feed.Direction, call func(context.Context, string) (chirp.Reaction, error)) (feed.ReactionEvent, error) {
	if !s.client.HasToken() {
		return feed.ReactionEvent{}, &feed.MutationError{Op: dir.String(), ItemID: itemID, Err: chirp.ErrUnauthorized}
	}
	ack, err := call(ctx, itemID)
	if err != nil {
		return feed.ReactionEvent{}, &feed.MutationError{Op: dir.String(), ItemID: itemID, Err: err}
	}
	return feed.ReactionEvent{
		ItemID:       ack.ItemID,
		ActingUserID: ack.ActingUserID,
		Direction:    dir,
	}, nil
}

func (s *Service) CreateItem(ctx context.Context, text string) (feed.Item, error) {
	if !s.client.HasToken() {
		return feed.Item{}, &feed.MutationError{Op: "create", Err: chirp.ErrUnauthorized}
	}
	item, err := s.client.CreateItem(ctx, text)
	if err != nil {
		return feed.Item{}, &feed.MutationError{Op: "create", Err: err}
	}
	return toItem(item), nil
}

func toAuthor(u chirp.User) feed.Author {
	return feed.Author{ID: u.ID, Name: u.Name, Image: u.Image}
}

func toItem(item chirp.Item) feed.Item {
	return feed.Item{
		ID:        item.ID,
		Author:    toAuthor(item.Author),
		Text:      item.Text,
		CreatedAt: item.CreatedAt,
		LikeCount: item.LikeCount,
		LikedByMe: item.LikedByMe,
	}
}
