package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the CORS layer in front; the
		// socket itself requires a valid token before doing anything.
		return true
	},
}

// Handle upgrades the request and runs the connection's event loop
// until the transport drops or the gateway terminates it.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := newClient(conn)
	go client.writePump()

	s := g.NewSession(client)
	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	// A token supplied on the URL authenticates before the first frame.
	if token := r.URL.Query().Get("token"); token != "" {
		if err := g.Authenticate(context.Background(), s, token); err != nil {
			_ = client.Close()
			return
		}
	}

	g.readLoop(s, client)
}

func (g *Gateway) readLoop(s *Session, client *Client) {
	defer func() {
		g.Disconnect(s)
		_ = client.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			_ = client.Send(EventMessageError, ErrorPayload{Error: "malformed frame"})
			continue
		}

		if err := g.Dispatch(context.Background(), s, frame); err != nil {
			return
		}
	}
}
