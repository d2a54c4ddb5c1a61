// Package gateway relays bus events to websocket clients grouped into rooms.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
)

// Topics a client may subscribe to by product id.
const (
	TopicInventory = "inventory"
	TopicReviews   = "reviews"
)

var ErrUnknownTopic = errors.New("unknown topic")

// UserRoom receives order outcomes of one user.
func UserRoom(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// InventoryRoom receives stock changes of one product.
func InventoryRoom(productID int64) string {
	return "product-inventory:" + strconv.FormatInt(productID, 10)
}

// ReviewsRoom receives rating changes of one product.
func ReviewsRoom(productID int64) string {
	return "product-reviews:" + strconv.FormatInt(productID, 10)
}

func topicRoom(topic string, productID int64) (string, error) {
	switch topic {
	case TopicInventory:
		return InventoryRoom(productID), nil
	case TopicReviews:
		return ReviewsRoom(productID), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
}

// Client is one connection's outbound queue.
type Client struct {
	userID int64
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewClient creates a client whose queue holds up to buffer frames.
func NewClient(userID int64, buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{userID: userID, send: make(chan []byte, buffer), done: make(chan struct{})}
}

func (c *Client) UserID() int64 { return c.userID }

// Send yields encoded frames in emit order.
func (c *Client) Send() <-chan []byte { return c.send }

// Done is closed once the client is dropped or disconnected.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// offer queues data without blocking. It reports false when the queue is full.
func (c *Client) offer(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Stats is a snapshot of hub membership.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

// Hub owns room membership for every connection of this process.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:   map[string]map[*Client]struct{}{},
		members: map[*Client]map[string]struct{}{},
		logger:  logger,
	}
}

// Register adds the client and joins its user room when it is identified.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.members[c]; !ok {
		h.members[c] = map[string]struct{}{}
	}
	if c.userID > 0 {
		h.join(c, UserRoom(c.userID))
	}
}

// Unregister removes the client from every room and closes it.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	for room := range h.members[c] {
		h.leave(c, room)
	}
	delete(h.members, c)
	h.mu.Unlock()
	c.close()
}

// Subscribe joins the topic rooms of productIDs. Joining twice is a no-op.
func (h *Hub) Subscribe(c *Client, topic string, productIDs ...int64) error {
	rooms, err := topicRooms(topic, productIDs)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.members[c]; !ok {
		return nil
	}
	for _, room := range rooms {
		h.join(c, room)
	}
	return nil
}

// Unsubscribe leaves the topic rooms of productIDs. Leaving a room not joined is a no-op.
func (h *Hub) Unsubscribe(c *Client, topic string, productIDs ...int64) error {
	rooms, err := topicRooms(topic, productIDs)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range rooms {
		h.leave(c, room)
	}
	return nil
}

func topicRooms(topic string, productIDs []int64) ([]string, error) {
	rooms := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		room, err := topicRoom(topic, id)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if len(productIDs) == 0 {
		if _, err := topicRoom(topic, 0); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

func (h *Hub) join(c *Client, room string) {
	clients, ok := h.rooms[room]
	if !ok {
		clients = map[*Client]struct{}{}
		h.rooms[room] = clients
	}
	clients[c] = struct{}{}
	h.members[c][room] = struct{}{}
}

func (h *Hub) leave(c *Client, room string) {
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	if joined, ok := h.members[c]; ok {
		delete(joined, room)
	}
}

// Emit queues frame for every client in room and returns how many received it.
// Clients whose queue is full are dropped instead of waited on.
func (h *Hub) Emit(room string, frame Frame) int {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("encode frame failed", slog.String("type", frame.Type), slog.String("error", err.Error()))
		return 0
	}

	var slow []*Client
	delivered := 0
	h.mu.RLock()
	for c := range h.rooms[room] {
		if c.offer(data) {
			delivered++
			continue
		}
		slow = append(slow, c)
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client", slog.String("room", room), slog.Int64("user_id", c.userID))
		h.Unregister(c)
	}
	return delivered
}

// Rooms lists the rooms c is currently in.
func (h *Hub) Rooms(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]string, 0, len(h.members[c]))
	for room := range h.members[c] {
		rooms = append(rooms, room)
	}
	return rooms
}

// CloseAll disconnects every client and empties the rooms. It returns how
// many clients were closed.
func (h *Hub) CloseAll() int {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.members))
	for c := range h.members {
		clients = append(clients, c)
	}
	h.rooms = map[string]map[*Client]struct{}{}
	h.members = map[*Client]map[string]struct{}{}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	return len(clients)
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{Connections: len(h.members), Rooms: len(h.rooms)}
}
