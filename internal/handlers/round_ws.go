// internal/handlers/round_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/blackjack/internal/middleware"
)

// RoundSubprotocol must be requested by WebSocket clients.
const RoundSubprotocol = "blackjack"

// RoundMessage is a client action sent over the WebSocket.
type RoundMessage struct {
	Type string `json:"type"` // "start", "hit" or "stand"
	RoundRequest
}

// RoundReply answers one RoundMessage. Exactly one of Data or Error is set.
type RoundReply struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// RoundWSHandler upgrades the connection and plays rounds over it, one reply per message.
func RoundWSHandler(s *BlackjackServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{RoundSubprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "internal server error")

		if c.Subprotocol() != RoundSubprotocol {
			c.Close(websocket.StatusPolicyViolation, "client must use the 'blackjack' subprotocol")
			return
		}
		middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		err = s.readRoundMessages(ctx, c)
		middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)
		if err == nil {
			c.Close(websocket.StatusNormalClosure, "")
		}
	}
}

// readRoundMessages loops until the client closes. A normal closure returns nil.
func (s *BlackjackServer) readRoundMessages(ctx context.Context, c *websocket.Conn) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg RoundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if werr := s.writeReply(ctx, c, RoundReply{Type: "error", Error: "invalid JSON format"}); werr != nil {
				return werr
			}
			continue
		}
		s.Logger.Debugf("received round action %q", msg.Type)

		reply := s.dispatchRoundMessage(ctx, msg)
		if err := s.writeReply(ctx, c, reply); err != nil {
			return err
		}
	}
}

func (s *BlackjackServer) dispatchRoundMessage(ctx context.Context, msg RoundMessage) RoundReply {
	var (
		data interface{}
		err  error
	)
	switch msg.Type {
	case "start":
		data, err = s.StartRound(ctx, msg.RoundRequest)
	case "hit":
		data, err = s.Hit(ctx, msg.RoundRequest)
	case "stand":
		data, err = s.Stand(ctx, msg.RoundRequest)
	default:
		return RoundReply{Type: "error", Error: "unknown message type: " + msg.Type}
	}
	if err != nil {
		s.logError(msg.Type, err)
		return RoundReply{Type: "error", Error: err.Error()}
	}
	return RoundReply{Type: msg.Type, Data: data}
}

func (s *BlackjackServer) writeReply(ctx context.Context, c *websocket.Conn, reply RoundReply) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return wsjson.Write(ctx, c, reply)
}
