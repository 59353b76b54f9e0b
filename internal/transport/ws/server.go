package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/world"
)

// Server streams world events to websocket clients. The first client message must be
// SUBSCRIBE; later SUBSCRIBE messages replace the kind filter.
type Server struct {
	world   *world.World
	log     *log.Logger
	limiter *IPLimiter

	upgrader websocket.Upgrader
}

// NewServer wires a stream endpoint. A nil limiter disables rate limiting.
func NewServer(w *world.World, logger *log.Logger, limiter *IPLimiter) *Server {
	return &Server{
		world:   w,
		log:     logger,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.limiter.Allow(r.RemoteAddr) {
			_ = writeJSON(conn, errorMsg(protocol.ErrRateLimit, "too many connections"))
			return
		}

		kinds, ok := s.handshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var welcome protocol.WelcomeMsg
		if err := s.world.Do(ctx, func(w *world.World) { welcome = w.Welcome() }); err != nil {
			_ = writeJSON(conn, errorMsg(protocol.ErrInternal, err.Error()))
			return
		}
		if err := writeJSON(conn, welcome); err != nil {
			return
		}

		out := make(chan []byte, 16)
		subID, err := s.world.Subscribe(ctx, kinds, out)
		if err != nil {
			_ = writeJSON(conn, errorMsg(protocol.ErrInternal, err.Error()))
			return
		}
		defer func() { s.world.Unsubscribe(subID) }()

		ctrl := make(chan []byte, 4)

		// Writer goroutine owns the connection's write side.
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					return
				case b = <-ctrl:
				case b = <-out:
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			if !s.limiter.Allow(r.RemoteAddr) {
				sendCtrl(ctrl, errorMsg(protocol.ErrRateLimit, "slow down"))
				continue
			}
			next, perr := parseSubscribe(msg)
			if perr != nil {
				sendCtrl(ctrl, *perr)
				continue
			}
			id, err := s.world.Subscribe(ctx, next, out)
			if err != nil {
				cancel()
				return
			}
			s.world.Unsubscribe(subID)
			subID = id
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) ([]string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}
	kinds, perr := parseSubscribe(msg)
	if perr != nil {
		_ = writeJSON(conn, *perr)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, perr.Message), time.Now().Add(time.Second))
		return nil, false
	}
	return kinds, true
}

func parseSubscribe(msg []byte) ([]string, *protocol.ErrorMsg) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeSubscribe {
		e := errorMsg(protocol.ErrProtoBadRequest, "expected SUBSCRIBE")
		return nil, &e
	}
	if base.ProtocolVersion != protocol.Version {
		e := errorMsg(protocol.ErrProtoBadRequest, "bad protocol_version")
		return nil, &e
	}
	var sub protocol.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		e := errorMsg(protocol.ErrProtoBadRequest, err.Error())
		return nil, &e
	}
	for _, k := range sub.Kinds {
		if !protocol.IsKnownKind(k) {
			e := errorMsg(protocol.ErrBadRequest, fmt.Sprintf("unknown kind %q", k))
			return nil, &e
		}
	}
	return sub.Kinds, nil
}

func errorMsg(code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	}
}

func sendCtrl(ch chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case ch <- b:
	default:
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
