package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Options tunes per-connection behaviour.
type Options struct {
	SendBuffer   int
	PingInterval time.Duration
}

// Server upgrades HTTP requests and runs the read and write pumps.
type Server struct {
	hub      *Hub
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, opts Options, logger *slog.Logger) *Server {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	return &Server{
		hub:    hub,
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and blocks until the connection closes.
// userID is zero for anonymous connections.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := NewClient(userID, s.opts.SendBuffer)
	s.hub.Register(client)
	stats := s.hub.Stats()
	s.logger.Debug("client connected",
		slog.Int64("user_id", userID),
		slog.Int("connections", stats.Connections),
		slog.Int("rooms", stats.Rooms),
	)

	go s.writePump(conn, client)
	s.readPump(conn, client)
}

func (s *Server) readPump(conn *websocket.Conn, client *Client) {
	defer func() {
		s.hub.Unregister(client)
		_ = conn.Close()
	}()

	pongWait := 2 * s.opts.PingInterval
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("client read failed", slog.Int64("user_id", client.UserID()), slog.String("error", err.Error()))
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reply(client, errorFrame("malformed message"))
			continue
		}
		s.handle(client, msg)
	}
}

func (s *Server) handle(client *Client, msg clientMessage) {
	ids := msg.ids()
	var (
		err   error
		reply string
	)
	switch msg.Type {
	case "subscribe":
		reply = FrameSubscribed
		err = s.hub.Subscribe(client, msg.Topic, ids...)
	case "unsubscribe":
		reply = FrameUnsubscribed
		err = s.hub.Unsubscribe(client, msg.Topic, ids...)
	default:
		s.reply(client, errorFrame("unknown message type "+msg.Type))
		return
	}
	if err != nil {
		s.reply(client, errorFrame(err.Error()))
		return
	}
	s.reply(client, Frame{Type: reply, Data: subscriptionData{Topic: msg.Topic, ProductIDs: ids}})
}

func (s *Server) reply(client *Client, frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if !client.offer(data) {
		s.hub.Unregister(client)
	}
}

func (s *Server) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-client.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.hub.Unregister(client)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.hub.Unregister(client)
				return
			}
		}
	}
}
