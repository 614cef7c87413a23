// Package session owns the coordinator connection: it registers the agent,
// then reads and answers one message at a time until the channel closes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aetherswarm/verifier/internal/logx"
	"github.com/aetherswarm/verifier/internal/pipeline"
	"github.com/aetherswarm/verifier/internal/protocol"
	"github.com/gorilla/websocket"
)

// Runner executes one verification task.
type Runner interface {
	Run(ctx context.Context, task *protocol.VerifyTask) *pipeline.Outcome
}

// Config identifies the agent on the channel.
type Config struct {
	URL          string
	AgentID      string
	Capabilities []string
}

type Session struct {
	cfg    Config
	runner Runner
	dial   Dialer
}

type Option func(*Session)

// WithDialer replaces the WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dial = d }
}

func New(cfg Config, runner Runner, opts ...Option) *Session {
	s := &Session{cfg: cfg, runner: runner, dial: DialWebSocket}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run connects, registers and serves until the coordinator closes the channel
// (nil) or the transport fails (non-nil). There is no reconnect.
func (s *Session) Run(ctx context.Context) error {
	logx.Infof("connecting to coordinator: %s", s.cfg.URL)
	conn, err := s.dial(ctx, s.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect coordinator: %w", err)
	}
	defer conn.Close()

	if err := s.register(conn); err != nil {
		return err
	}
	return s.Serve(ctx, conn)
}

func (s *Session) register(conn Conn) error {
	if err := writeJSON(conn, protocol.NewRegistration(s.cfg.AgentID, s.cfg.Capabilities)); err != nil {
		return fmt.Errorf("send registration: %w", err)
	}
	logx.Infof("registered as %s capabilities=%v", s.cfg.AgentID, s.cfg.Capabilities)
	return nil
}

// Serve runs the read-dispatch loop on an established connection. Each
// message is fully handled, including any attestation call, before the next
// one is read.
func (s *Session) Serve(ctx context.Context, conn Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			// Unblocks ReadMessage on shutdown.
			conn.Close()
		case <-stop:
		}
	}()

	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				logx.Infof("connection closed by coordinator code=%d reason=%q", ce.Code, ce.Text)
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		if msgType != websocket.TextMessage {
			logx.Debugf("ignoring non-text frame type=%d len=%d", msgType, len(raw))
			continue
		}

		reply, ok := s.Handle(ctx, raw)
		if !ok {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("write message: %w", err)
		}
	}
}

// Handle dispatches one inbound message and returns the reply to send, if
// any. Undecodable or unknown messages are logged and produce no reply.
func (s *Session) Handle(ctx context.Context, raw []byte) ([]byte, bool) {
	msgType, err := protocol.PeekType(raw)
	if err != nil {
		logx.Warnf("dropping inbound message: %v", err)
		return nil, false
	}

	var reply any
	switch msgType {
	case protocol.TypeVerifyTask:
		task, err := protocol.DecodeVerifyTask(raw)
		if err != nil {
			logx.Warnf("dropping inbound message: %v", err)
			return nil, false
		}
		logx.Infof("received verification task for quest: %s chunks=%d", task.QuestID, len(task.Data))
		out := s.runner.Run(ctx, task)
		if out.Err != nil {
			logx.Errorf("TEE verification failed for quest %s: %v", task.QuestID, out.Err)
		} else {
			logx.Infof("verification complete: %d verified, %d failed", len(out.Verified), len(out.Failed))
		}
		reply = out.Message()
	case protocol.TypePing:
		reply = protocol.NewPong(s.cfg.AgentID)
	default:
		logx.Infof("unknown task type: %s", msgType)
		return nil, false
	}

	b, err := json.Marshal(reply)
	if err != nil {
		logx.Errorf("encode reply for %s: %v", msgType, err)
		return nil, false
	}
	return b, true
}

func writeJSON(conn Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}
