// Package notifyclient is a Go client for the real-time notification
// pipeline. It multiplexes one websocket connection across any number of
// category subscribers, reconnects with bounded backoff, and reconciles
// missed pushes by pulling the authoritative unread list over REST.
package notifyclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"
)

// Subscription categories. UI components subscribe to these, not to raw wire
// event names.
const (
	CategoryNotification       = "notification"
	CategoryCartUpdate         = "cart-update"
	CategoryTrainerApplication = "trainer-application"
)

// Wire event names pushed by the server.
const (
	eventNewNotification       = "new-notification"
	eventCartUpdated           = "cart-updated"
	eventNewTrainerApplication = "new-trainer-application"
	eventNotificationsSnapshot = "notifications"
	controlJoinUserRoom        = "join-user-room"
	controlJoinAdminRoom       = "join-admin-room"
	controlGetNotifications    = "get-notifications"
)

// State describes the connection lifecycle as seen by subscribers.
type State string

const (
	StateConnecting   State = "connecting"
	StateJoined       State = "joined"
	StateDisconnected State = "disconnected"
)

// Event is the wire envelope for a pushed event.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Notification mirrors the server's notification representation.
type Notification struct {
	ID             string         `json:"id"`
	RecipientID    *string        `json:"recipientId,omitempty"`
	AdminBroadcast bool           `json:"adminBroadcast"`
	Category       string         `json:"category"`
	Title          string         `json:"title"`
	Body           string         `json:"body,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	IsRead         bool           `json:"isRead"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Handler receives a pushed event for a subscribed category.
type Handler func(Event)

// Config holds the connection parameters for a Client.
type Config struct {
	// ServerURL is the base HTTP(S) URL of the backend, e.g. "https://api.pulsefit.app".
	ServerURL string

	// Token is the bearer token used for both the websocket handshake and pulls.
	Token string

	// JoinAdminRoom requests admin room membership on connect. The server
	// still enforces the role claim; a non-admin request is simply refused.
	JoinAdminRoom bool

	// MaxRetries bounds reconnect attempts after a drop. Zero means DefaultMaxRetries.
	MaxRetries int

	// BaseBackoff is the first reconnect delay; it doubles per attempt up to
	// MaxBackoff. Zeros mean the defaults.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// HTTPClient is used for pulls. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = 500 * time.Millisecond
	DefaultMaxBackoff  = 15 * time.Second
)

// ErrClosed is returned by operations on a client after Close.
var ErrClosed = errors.New("notifyclient: client closed")

// Client multiplexes one websocket connection across many subscribers.
// Subscribe and Unsubscribe are synchronous; all network I/O runs in
// background goroutines.
type Client struct {
	cfg        Config
	wsURL      string
	listURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	state      State
	subs       map[string]map[int]Handler
	stateSubs  map[int]func(State)
	snapSubs   map[int]func([]Notification)
	nextSubID  int
	refs       int
	generation int
	closed     bool

	pulls singleflight.Group
}

// New creates a client. No connection is made until Connect.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.ServerURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("notifyclient: invalid server url %q", cfg.ServerURL)
	}
	if cfg.Token == "" {
		return nil, errors.New("notifyclient: token is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}

	wsScheme := "ws"
	if base.Scheme == "https" {
		wsScheme = "wss"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:        cfg,
		wsURL:      wsScheme + "://" + base.Host + "/ws?token=" + url.QueryEscape(cfg.Token),
		listURL:    strings.TrimRight(cfg.ServerURL, "/") + "/api/v1/notifications",
		httpClient: httpClient,
		logger:     logger.With("component", "notifyclient"),
		state:      StateDisconnected,
		subs:       make(map[string]map[int]Handler),
		stateSubs:  make(map[int]func(State)),
		snapSubs:   make(map[int]func([]Notification)),
	}, nil
}

// Subscribe registers fn against a category and returns its disposer.
// Subscribers to the same category are independent; disposing one never
// affects the others. When the last subscriber across all categories is
// disposed the transport is torn down.
func (c *Client) Subscribe(category string, fn Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	if c.subs[category] == nil {
		c.subs[category] = make(map[int]Handler)
	}
	c.subs[category][id] = fn
	c.refs++

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(category, id) })
	}
}

func (c *Client) unsubscribe(category string, id int) {
	c.mu.Lock()
	if handlers := c.subs[category]; handlers != nil {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(c.subs, category)
		}
	}
	c.refs--
	teardown := c.refs <= 0 && c.conn != nil
	var conn *websocket.Conn
	if teardown {
		conn = c.conn
		c.conn = nil
		c.generation++
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	if teardown {
		c.logger.Debug("last subscriber gone, closing transport")
		_ = conn.Close()
	}
}

// OnState registers a connection state callback and returns its disposer.
func (c *Client) OnState(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.stateSubs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.stateSubs, id)
			c.mu.Unlock()
		})
	}
}

// OnSnapshot registers a callback for pull results and returns its disposer.
func (c *Client) OnSnapshot(fn func([]Notification)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.snapSubs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.snapSubs, id)
			c.mu.Unlock()
		})
	}
}

// Connect dials the server, joins the appropriate rooms, and starts the read
// loop. It returns once the initial connection is established (or fails);
// subsequent drops reconnect in the background with bounded backoff.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	gen := c.generation
	c.mu.Unlock()

	c.setState(StateConnecting)

	conn, err := c.dialAndJoin(ctx)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	if !c.adopt(conn, gen) {
		return ErrClosed
	}

	c.setState(StateJoined)

	// Pushes missed before this connect are invisible, so the first join
	// repairs state from the store of record just like a reconnect does.
	go func() {
		if _, err := c.PullNotifications(ctx); err != nil {
			c.logger.Warn("post-connect pull failed", "error", err)
		}
	}()

	go c.readLoop(ctx, conn, gen)
	return nil
}

// adopt installs conn unless the client was closed or torn down since gen.
func (c *Client) adopt(conn *websocket.Conn, gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.generation != gen {
		_ = conn.Close()
		return false
	}
	c.conn = conn
	return true
}

// dialAndJoin establishes the transport and sends the identity join frames.
func (c *Client) dialAndJoin(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.wsURL, err)
	}

	joins := []Event{{Name: controlJoinUserRoom, Payload: json.RawMessage(`{}`)}}
	if c.cfg.JoinAdminRoom {
		joins = append(joins, Event{Name: controlJoinAdminRoom, Payload: json.RawMessage(`{}`)})
	}
	for _, join := range joins {
		if err := conn.WriteJSON(join); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("send %s: %w", join.Name, err)
		}
	}
	return conn, nil
}

// readLoop dispatches pushed events until the connection drops, then hands
// off to the reconnect loop. gen pins the loop to the connection it serves so
// a deliberate teardown does not trigger a reconnect.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.closed || c.generation != gen
			if !stale {
				c.conn = nil
			}
			c.mu.Unlock()
			if stale {
				return
			}
			c.logger.Warn("connection dropped", "error", err)
			c.reconnect(ctx, gen)
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.logger.Warn("discarding malformed event", "error", err)
			continue
		}
		c.dispatch(event)
	}
}

// dispatch routes a wire event to its category's subscribers. Unknown events
// are dropped; a push is only ever a hint.
func (c *Client) dispatch(event Event) {
	var category string
	switch event.Name {
	case eventNewNotification:
		category = CategoryNotification
	case eventCartUpdated:
		category = CategoryCartUpdate
	case eventNewTrainerApplication:
		category = CategoryTrainerApplication
	case eventNotificationsSnapshot:
		c.dispatchSnapshot(event.Payload)
		return
	default:
		return
	}

	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.subs[category]))
	for _, fn := range c.subs[category] {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(event)
	}
}

func (c *Client) dispatchSnapshot(payload json.RawMessage) {
	var notifications []Notification
	if err := json.Unmarshal(payload, &notifications); err != nil {
		c.logger.Warn("discarding malformed snapshot", "error", err)
		return
	}
	c.deliverSnapshot(notifications)
}

func (c *Client) deliverSnapshot(notifications []Notification) {
	c.mu.Lock()
	callbacks := make([]func([]Notification), 0, len(c.snapSubs))
	for _, fn := range c.snapSubs {
		callbacks = append(callbacks, fn)
	}
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(notifications)
	}
}

// reconnect retries the transport with capped exponential backoff. After the
// attempt budget is spent it surfaces StateDisconnected and stops; it never
// retries forever.
func (c *Client) reconnect(ctx context.Context, gen int) {
	c.setState(StateConnecting)

	backoff := c.cfg.BaseBackoff
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}

		c.mu.Lock()
		stale := c.closed || c.generation != gen
		c.mu.Unlock()
		if stale {
			return
		}

		conn, err := c.dialAndJoin(ctx)
		if err != nil {
			c.logger.Warn("reconnect attempt failed",
				"attempt", attempt,
				"max_retries", c.cfg.MaxRetries,
				"error", err,
			)
			continue
		}

		if !c.adopt(conn, gen) {
			return
		}

		c.setState(StateJoined)
		c.logger.Info("reconnected", "attempt", attempt)

		// A drop can silently swallow pushes, so every reconnect repairs
		// state from the store of record.
		go func() {
			if _, err := c.PullNotifications(ctx); err != nil {
				c.logger.Warn("post-reconnect pull failed", "error", err)
			}
		}()

		go c.readLoop(ctx, conn, gen)
		return
	}

	c.logger.Error("reconnect attempts exhausted", "max_retries", c.cfg.MaxRetries)
	c.setState(StateDisconnected)
}

// PullNotifications fetches the viewer's unread notifications from the list
// endpoint. Concurrent callers share one in-flight request; every caller gets
// the same snapshot. The snapshot is also delivered to OnSnapshot callbacks.
func (c *Client) PullNotifications(ctx context.Context) ([]Notification, error) {
	result, err, _ := c.pulls.Do("pull", func() (interface{}, error) {
		notifications, err := c.fetchNotifications(ctx)
		if err != nil {
			return nil, err
		}
		c.deliverSnapshot(notifications)
		return notifications, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Notification), nil
}

func (c *Client) fetchNotifications(ctx context.Context) ([]Notification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.listURL+"?unreadOnly=true", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pull notifications: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pull notifications: status %d: %s", resp.StatusCode, body)
	}

	var envelope struct {
		Data []Notification `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("pull notifications: decode: %w", err)
	}
	return envelope.Data, nil
}

// RequestSnapshot asks the server for a snapshot over the live connection.
// It is a hint; the REST pull remains the authoritative path.
func (c *Client) RequestSnapshot() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("notifyclient: not connected")
	}
	return conn.WriteJSON(Event{Name: controlGetNotifications, Payload: json.RawMessage(`{}`)})
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	callbacks := make([]func(State), 0, len(c.stateSubs))
	for _, fn := range c.stateSubs {
		callbacks = append(callbacks, fn)
	}
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(state)
	}
}

// Close tears down the transport and permanently disables the client.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.generation++
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.setState(StateDisconnected)
	return nil
}
