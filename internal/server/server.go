package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/glabrego/chirp-cli/internal/chirp"
	"github.com/glabrego/chirp-cli/internal/storage"
	"github.com/glabrego/chirp-cli/internal/validate"
)

// A Store persists users, items and likes.
type Store interface {
	UserByToken(ctx context.Context, token string) (chirp.User, error)
	ListTimeline(ctx context.Context, q storage.TimelineQuery) ([]chirp.Item, string, error)
	CreateItem(ctx context.Context, authorID, text string) (chirp.Item, error)
	Like(ctx context.Context, itemID, userID string) error
	Unlike(ctx context.Context, itemID, userID string) error
}

// API provides the REST endpoints consumed by the client.
type API struct {
	Logger *slog.Logger
	Store  Store
	Val    *validate.Validator

	once sync.Once
	mux  *http.ServeMux
}

const defaultPageSize = 10

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /me", a.currentUser)
	mux.HandleFunc("GET /timeline", a.timeline)
	mux.HandleFunc("POST /items", a.createItem)
	mux.HandleFunc("POST /items/{itemID}/like", a.react(a.Store.Like))
	mux.HandleFunc("POST /items/{itemID}/unlike", a.react(a.Store.Unlike))

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path)
	a.mux.ServeHTTP(w, r)
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	if status >= http.StatusInternalServerError {
		a.Logger.Error("Error", "error", err.Error())
	} else {
		a.Logger.Info("Request rejected", "status", status, "error", err.Error())
	}
	a.respond(w, status, response{Error: msg})
}

// viewer resolves the bearer token. Requests without one are anonymous; a
// token that matches no user is ErrUnauthorized.
func (a *API) viewer(r *http.Request) (user chirp.User, authenticated bool, err error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return chirp.User{}, false, nil
	}
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return chirp.User{}, false, chirp.ErrUnauthorized
	}
	user, err = a.Store.UserByToken(r.Context(), token)
	if errors.Is(err, storage.ErrNotFound) {
		return chirp.User{}, false, chirp.ErrUnauthorized
	}
	if err != nil {
		return chirp.User{}, false, err
	}
	return user, true, nil
}

// requireUser writes the error response itself when it returns false.
func (a *API) requireUser(w http.ResponseWriter, r *http.Request) (chirp.User, bool) {
	user, authenticated, err := a.viewer(r)
	if err != nil && !errors.Is(err, chirp.ErrUnauthorized) {
		a.respondError(w, http.StatusInternalServerError, err, "Could not resolve user")
		return chirp.User{}, false
	}
	if !authenticated {
		a.respondError(w, http.StatusUnauthorized, chirp.ErrUnauthorized, "Sign in required")
		return chirp.User{}, false
	}
	return user, true
}

func (a *API) currentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	a.respond(w, http.StatusOK, user)
}

func (a *API) timeline(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Items      []chirp.Item `json:"items"`
		NextCursor *string      `json:"next_cursor"`
	}

	viewer, _, err := a.viewer(r)
	if errors.Is(err, chirp.ErrUnauthorized) {
		a.respondError(w, http.StatusUnauthorized, err, "Invalid token")
		return
	}
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not resolve user")
		return
	}

	q := r.URL.Query()
	limit := defaultPageSize
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			a.respondError(w, http.StatusBadRequest, errors.New("invalid limit "+raw), "limit must be a positive integer")
			return
		}
	}

	items, next, err := a.Store.ListTimeline(r.Context(), storage.TimelineQuery{
		Author:   q.Get("author"),
		Cursor:   q.Get("cursor"),
		Limit:    limit,
		ViewerID: viewer.ID,
	})
	if errors.Is(err, storage.ErrNotFound) {
		a.respondError(w, http.StatusBadRequest, err, "Unknown cursor")
		return
	}
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list timeline")
		return
	}

	res := response{Items: items}
	if res.Items == nil {
		res.Items = []chirp.Item{}
	}
	if next != "" {
		res.NextCursor = &next
	}
	a.respond(w, http.StatusOK, res)
}

func (a *API) createItem(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Errors []validate.ValidationError `json:"errors"`
	}

	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var body validate.Post
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if errs := a.Val.Post(body.Text); len(errs) > 0 {
		a.Logger.Info("Item rejected", "author_id", user.ID, "errors", validate.Join(errs))
		a.respond(w, http.StatusBadRequest, response{Errors: errs})
		return
	}

	item, err := a.Store.CreateItem(r.Context(), user.ID, strings.TrimSpace(body.Text))
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not create item")
		return
	}
	a.Logger.Info("Item created", "item_id", item.ID, "author_id", user.ID)
	a.respond(w, http.StatusCreated, item)
}

func (a *API) react(apply func(ctx context.Context, itemID, userID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.requireUser(w, r)
		if !ok {
			return
		}

		itemID := r.PathValue("itemID")
		err := apply(r.Context(), itemID, user.ID)
		if errors.Is(err, storage.ErrNotFound) {
			a.respondError(w, http.StatusNotFound, err, "Item not found")
			return
		}
		if err != nil {
			a.respondError(w, http.StatusInternalServerError, err, "Could not update reaction for item "+itemID)
			return
		}
		a.respond(w, http.StatusOK, chirp.Reaction{ItemID: itemID, ActingUserID: user.ID})
	}
}
