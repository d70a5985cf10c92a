package ctrl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"src.manglr.sh/pkg/dep"
	"src.manglr.sh/pkg/store/storedefs"
	"src.manglr.sh/pkg/vals"
)

// Store is a remote collection fetched over HTTP. Its fields are:
//
//   - items: the fetched list, initially empty or the cached items;
//   - loading: whether a fetch is in flight;
//   - error: the text of the last failure, or nil;
//   - loaded: whether a fetch has succeeded.
type Store struct {
	*vals.Model
	env  *Env
	id   string
	url  string
	auth *Auth

	// Incremented by every Fetch. Results of older fetches are dropped.
	gen    int
	cancel context.CancelFunc

	// Subscribed to the token of auth.
	watch    *dep.Dep
	stopFeed context.CancelFunc
	closed   bool
}

var errUnauthorized = errors.New("unauthorized")

// NewStore creates a Store fetching getURL. If auth is not nil, its token is
// sent with every request, and the Store reloads whenever a new token is
// set. Nothing is fetched until Fetch is called.
func NewStore(env *Env, id, getURL string, auth *Auth) *Store {
	s := &Store{Model: vals.NewModel(env.Eng), env: env, id: id,
		url: env.config().ResolveURL(getURL), auth: auth}
	s.Load(map[string]any{
		"items": s.cachedItems(), "loading": false, "error": nil, "loaded": false})
	if auth != nil {
		tok := auth.Field("token")
		last := tok.Value()
		s.watch = env.Eng.Func(func(*dep.Dep) {
			v := tok.Value()
			if v == last {
				return
			}
			last = v
			if vals.ToText(v) != "" {
				env.Eng.Defer(s.Fetch)
			}
		})
		env.Eng.Subscribe(tok, s.watch)
	}
	if u, ok := env.config().Store.Feeds[id]; ok {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopFeed = cancel
		go s.follow(ctx, u)
	}
	return s
}

// ID returns the name the Store is bound to.
func (s *Store) ID() string { return s.id }

func (s *Store) cachedItems() []any {
	if s.env.DB == nil {
		return []any{}
	}
	c, err := s.env.DB.CachedItems(s.id)
	if err != nil {
		if err != storedefs.ErrNoCache {
			logger.Printf("store %s: reading cache: %v", s.id, err)
		}
		return []any{}
	}
	var items []any
	if err := json.Unmarshal(c.Items, &items); err != nil {
		logger.Printf("store %s: bad cache entry: %v", s.id, err)
		return []any{}
	}
	return items
}

// Fetch starts fetching the items, abandoning any fetch in flight.
func (s *Store) Fetch() {
	if s.closed {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	token := ""
	if s.auth != nil {
		token = s.auth.Token()
	}
	s.Field("loading").Set(true)
	go s.fetch(ctx, gen, ulid.Make(), token)
}

// Retries with exponential backoff until the retry budget is spent.
func (s *Store) fetch(ctx context.Context, gen int, req ulid.ULID, token string) {
	cfg := s.env.config().Store
	delay := cfg.BaseDelay.D()
	var err error
	for attempt := 1; ; attempt++ {
		var items []any
		items, err = s.get(ctx, token)
		if err == nil {
			s.env.post(func() { s.settle(gen, items, nil) })
			return
		}
		if ctx.Err() != nil {
			return
		}
		if err == errUnauthorized || attempt >= cfg.RetryBudget {
			break
		}
		glog.V(2).Infof("store %s: request %s attempt %d failed: %v; retrying in %v",
			s.id, req, attempt, err, delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if max := cfg.MaxDelay.D(); delay > max {
			delay = max
		}
	}
	logger.Printf("store %s: request %s failed: %v", s.id, req, err)
	s.env.post(func() { s.settle(gen, nil, err) })
}

func (s *Store) get(ctx context.Context, token string) ([]any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.env.config().Store.Timeout.D())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.env.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errUnauthorized
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("GET %s: %s", s.url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeItems(body)
}

// Accepts a JSON array, or an object holding the array under "items".
func decodeItems(body []byte) ([]any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if items, ok := v["items"].([]any); ok {
			return items, nil
		}
	}
	return nil, errors.New("response is not a list of items")
}

func (s *Store) settle(gen int, items []any, err error) {
	if s.closed || gen != s.gen {
		return
	}
	s.cancel = nil
	if err != nil {
		if err == errUnauthorized && s.auth != nil {
			s.auth.Logout()
		}
		s.Load(map[string]any{"loading": false, "error": err.Error()})
		return
	}
	s.Load(map[string]any{"items": items, "loading": false, "error": nil, "loaded": true})
	s.cache(items)
}

func (s *Store) cache(items []any) {
	if s.env.DB == nil {
		return
	}
	data, err := json.Marshal(items)
	if err == nil {
		_, err = s.env.DB.SetCachedItems(s.id, data)
	}
	if err != nil {
		logger.Printf("store %s: writing cache: %v", s.id, err)
	}
}

// Follows a websocket feed whose text messages replace the items.
func (s *Store) follow(ctx context.Context, u string) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		logger.Printf("store %s: feed %s: %v", s.id, u, err)
		return
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Printf("store %s: feed %s: %v", s.id, u, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		items, err := decodeItems(msg)
		if err != nil {
			logger.Printf("store %s: feed %s: %v", s.id, u, err)
			continue
		}
		s.env.post(func() {
			if !s.closed {
				s.Load(map[string]any{"items": items, "loaded": true, "error": nil})
			}
		})
	}
}

// Close abandons the fetch in flight and stops following the feed and the
// token.
func (s *Store) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	if s.stopFeed != nil {
		s.stopFeed()
	}
	if s.watch != nil {
		s.env.Eng.Unsubscribe(s.auth.Field("token"), s.watch)
	}
}
