package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/session"
)

type Server struct {
	deps           session.Deps
	timelineDigest string
	log            *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(deps session.Deps, timelineDigest string, logger *log.Logger) *Server {
	if deps.Slots == nil {
		deps.Slots = session.NewSlots()
	}
	return &Server{
		deps:           deps,
		timelineDigest: timelineDigest,
		log:            logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
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

		owner := "ws:" + uuid.NewString()
		sess, slot := s.handshake(conn, owner)
		if sess == nil {
			return
		}
		defer s.deps.Slots.Release(slot, owner)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan any, 8)
		var turns sync.WaitGroup
		defer turns.Wait()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case v := <-out:
					if err := writeJSON(conn, v); err != nil {
						cancel()
						return
					}
				}
			}
		}()
		send := func(v any) {
			select {
			case out <- v:
			case <-ctx.Done():
			}
		}

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeIntent {
				send(protocol.NewError(protocol.ErrProtoBadRequest, "expected INTENT"))
				continue
			}
			var intent protocol.IntentMsg
			if err := json.Unmarshal(msg, &intent); err != nil {
				send(protocol.NewError(protocol.ErrProtoBadRequest, "malformed INTENT"))
				continue
			}
			if intent.ProtocolVersion != protocol.Version {
				send(protocol.NewError(protocol.ErrProtoBadRequest, "bad protocol_version"))
				continue
			}
			// Turns run beside the reader so a second INTENT can be refused
			// while one is in flight.
			turns.Add(1)
			go func() {
				defer turns.Done()
				reply := s.runTurn(ctx, sess, intent)
				send(reply)
				if n, ok := reply.(protocol.NarrativeMsg); ok && !n.Saved && !n.Blocked {
					send(protocol.NewError(protocol.ErrPersist, "progress was not saved"))
				}
			}()
		}
	}
}

func (s *Server) runTurn(ctx context.Context, sess *session.Session, intent protocol.IntentMsg) any {
	out, err := sess.Turn(ctx, intent.Text)
	if err != nil {
		code := session.ErrorCode(err)
		if code == protocol.ErrInternal {
			s.log.Printf("slot %d: turn: %v", sess.View().Slot, err)
			return protocol.NewError(code, "turn failed")
		}
		return protocol.NewError(code, err.Error())
	}
	return out.Message(intent.ID)
}

func (s *Server) handshake(conn *websocket.Conn, owner string) (*session.Session, int) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, 0
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil, 0
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, 0
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil, 0
	}
	if hello.Slot < 0 {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrBadRequest, "slot must be >= 0"))
		return nil, 0
	}
	name := strings.TrimSpace(hello.SaveName)
	sess, resumed, err := session.OpenClaimed(s.deps, owner, hello.Slot, name, hello.NewGame, hello.ResumeOnly)
	if err != nil {
		code := session.ErrorCode(err)
		msg := err.Error()
		if code == protocol.ErrInternal {
			s.log.Printf("slot %d: open: %v", hello.Slot, err)
			msg = "cannot open slot"
		}
		_ = writeJSON(conn, protocol.NewError(code, msg))
		return nil, 0
	}

	welcome := sess.View().Welcome(resumed, s.timelineDigest)
	if err := writeJSON(conn, welcome); err != nil {
		s.deps.Slots.Release(hello.Slot, owner)
		return nil, 0
	}
	return sess, hello.Slot
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
