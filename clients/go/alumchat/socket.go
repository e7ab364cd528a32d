package alumchat

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event names mirrored from the server's wire protocol.
const (
	EventAuthenticate = "authenticate"
	EventAuthError    = "authError"
	EventSendMessage  = "sendMessage"
	EventMessageSent  = "messageSent"
	EventMessageError = "messageError"
	EventNewMessage   = "newMessage"
	EventTyping       = "typing"
	EventUserTyping   = "userTyping"
	EventMarkRead     = "markMessagesRead"
	EventMessagesRead = "messagesRead"
	EventUserStatus   = "userStatusChanged"
	EventNotification = "notification"
)

// Frame is one WebSocket message in either direction.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Socket is a live connection to the messaging server.
type Socket struct {
	conn     *websocket.Conn
	mu       sync.Mutex // guards writes
	handlers map[string]func(json.RawMessage)
	done     chan struct{}
	once     sync.Once
}

// Connect dials the WebSocket endpoint and authenticates with the
// client's token. Handlers registered via On receive server events
// until Close.
func (c *Client) Connect() (*Socket, error) {
	wsURL := strings.Replace(c.BaseURL, "http", "ws", 1) + "/ws"
	wsURL += "?token=" + url.QueryEscape(c.Token)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	s := &Socket{
		conn:     conn,
		handlers: make(map[string]func(json.RawMessage)),
		done:     make(chan struct{}),
	}

	go s.readLoop()
	return s, nil
}

// On registers a handler for a server event. Must be called before the
// event arrives; handlers run on the read goroutine.
func (s *Socket) On(event string, fn func(data json.RawMessage)) {
	s.mu.Lock()
	s.handlers[event] = fn
	s.mu.Unlock()
}

// Done is closed when the connection ends.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// Close tears down the connection.
func (s *Socket) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *Socket) readLoop() {
	defer s.Close()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}

		s.mu.Lock()
		fn := s.handlers[frame.Event]
		s.mu.Unlock()
		if fn != nil {
			fn(frame.Data)
		}
	}
}

// emit sends one frame to the server.
func (s *Socket) emit(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame := Frame{Event: event, Data: payload}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(frame)
}

// SendMessage sends a chat message to another user.
func (s *Socket) SendMessage(receiverID, text string, mediaURLs []string, mediaType string) error {
	return s.emit(EventSendMessage, map[string]interface{}{
		"receiverId": receiverID,
		"text":       text,
		"mediaUrls":  mediaURLs,
		"mediaType":  mediaType,
	})
}

// Typing notifies the counterpart that the user is typing.
func (s *Socket) Typing(receiverID string) error {
	return s.emit(EventTyping, map[string]string{"receiverId": receiverID})
}

// MarkRead acknowledges the conversation with another user.
func (s *Socket) MarkRead(withUserID string) error {
	return s.emit(EventMarkRead, map[string]string{"chatWithUserId": withUserID})
}
