package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aetherswarm/verifier/internal/version"
	"github.com/gorilla/websocket"
)

// Conn is the message-oriented channel to the coordinator. *websocket.Conn
// satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a Conn to url.
type Dialer func(ctx context.Context, url string) (Conn, error)

// DialWebSocket connects to a ws:// or wss:// coordinator endpoint.
func DialWebSocket(ctx context.Context, url string) (Conn, error) {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}
