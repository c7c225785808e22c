package actions

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/chirp-cli/internal/feed"
)

const requestTimeout = 10 * time.Second

type Service interface {
	feed.Fetcher
	CurrentUser(ctx context.Context) (*feed.Author, error)
	Like(ctx context.Context, itemID string) (feed.ReactionEvent, error)
	Unlike(ctx context.Context, itemID string) (feed.ReactionEvent, error)
	CreateItem(ctx context.Context, text string) (feed.Item, error)
}

type SessionLoadedMsg struct {
	User *feed.Author
}

type SessionErrorMsg struct {
	Err error
}

type PageLoadedMsg struct {
	Req      feed.FetchRequest
	Page     feed.Page
	Duration time.Duration
}

type PageErrorMsg struct {
	Req      feed.FetchRequest
	Err      error
	Duration time.Duration
}

type ReactionSuccessMsg struct {
	Event  feed.ReactionEvent
	Status string
}

type ReactionErrorMsg struct {
	ItemID string
	Err    error
}

type CreateSuccessMsg struct {
	Item feed.Item
}

type CreateErrorMsg struct {
	Err error
}

type CopySuccessMsg struct {
	Status string
}

type CopyErrorMsg struct {
	Err error
}

func LoadSessionCmd(service Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		user, err := service.CurrentUser(ctx)
		if err != nil {
			return SessionErrorMsg{Err: err}
		}
		return SessionLoadedMsg{User: user}
	}
}

// FetchPageCmd runs req. The resulting message carries req unchanged so the
// controller can match the completion against its pending request.
func FetchPageCmd(service Service, req feed.FetchRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		start := time.Now()

		page, err := req.Do(ctx, service)
		if err != nil {
			return PageErrorMsg{Req: req, Err: err, Duration: time.Since(start)}
		}
		return PageLoadedMsg{Req: req, Page: page, Duration: time.Since(start)}
	}
}

func ReactCmd(service Service, itemID string, dir feed.Direction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var (
			ev  feed.ReactionEvent
			err error
		)
		switch dir {
		case feed.Like:
			ev, err = service.Like(ctx, itemID)
		case feed.Unlike:
			ev, err = service.Unlike(ctx, itemID)
		default:
			err = fmt.Errorf("unknown reaction %s", dir)
		}
		if err != nil {
			return ReactionErrorMsg{ItemID: itemID, Err: err}
		}

		status := "Liked"
		if dir == feed.Unlike {
			status = "Unliked"
		}
		return ReactionSuccessMsg{Event: ev, Status: status}
	}
}

func CreateItemCmd(service Service, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		item, err := service.CreateItem(ctx, text)
		if err != nil {
			return CreateErrorMsg{Err: err}
		}
		return CreateSuccessMsg{Item: item}
	}
}

func CopyTextCmd(text string, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if copyFn != nil {
			if err := copyFn(text); err == nil {
				return CopySuccessMsg{Status: "Copied to clipboard"}
			}
		}
		return CopyErrorMsg{Err: fmt.Errorf("could not copy text to clipboard")}
	}
}
