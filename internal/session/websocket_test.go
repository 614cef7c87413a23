package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aetherswarm/verifier/internal/attestation"
	"github.com/aetherswarm/verifier/internal/pipeline"
	"github.com/gorilla/websocket"
)

// coordinator is a scripted WebSocket peer: it records the registration,
// sends each script message, collects one reply per expected answer and then
// closes the channel.
func coordinator(t *testing.T, script []string, replies int) (*httptest.Server, <-chan []string) {
	t.Helper()
	got := make(chan []string, 1)
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))

		var seen []string
		_, reg, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read registration: %v", err)
			return
		}
		seen = append(seen, string(reg))

		for _, m := range script {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				t.Errorf("write: %v", err)
				return
			}
		}
		for i := 0; i < replies; i++ {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				t.Errorf("read reply %d: %v", i, err)
				return
			}
			seen = append(seen, string(msg))
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		got <- seen
	}))
	t.Cleanup(ts.Close)
	return ts, got
}

func TestWebSocketSession(t *testing.T) {
	ts, got := coordinator(t, []string{
		`{"type":"hello"}`,
		`{"type":"ping"}`,
	}, 1)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	s := New(Config{URL: url, AgentID: "verifier-ws", Capabilities: []string{"data_integrity"}},
		pipeline.New("verifier-ws", attestation.NewSimulated()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := <-got
	if len(seen) != 2 {
		t.Fatalf("coordinator saw %q", seen)
	}
	var reg map[string]any
	json.Unmarshal([]byte(seen[0]), &reg)
	if reg["type"] != "register" || reg["role"] != "verifier" || reg["agentId"] != "verifier-ws" {
		t.Fatalf("unexpected registration %s", seen[0])
	}
	if seen[1] != `{"type":"pong","agentId":"verifier-ws"}` {
		t.Fatalf("unexpected reply %s", seen[1])
	}
}

func TestWebSocketSession_ContextCancel(t *testing.T) {
	block := make(chan struct{})
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-block
	}))
	defer ts.Close()
	defer close(block)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	s := New(Config{URL: url, AgentID: "v"}, pipeline.New("v", attestation.NewSimulated()))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
