// Package server exposes an engine to a browser over a websocket. Every
// connection feeds one owner goroutine, which is the only code that touches
// the engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/engine"
	"github.com/nathoo/cosmicisles/logger"
	"github.com/nathoo/cosmicisles/types"
)

var errMissingType = errors.New("message has no type")

type unknownTypeError struct{ typ string }

func (e *unknownTypeError) Error() string { return fmt.Sprintf("unknown message type %q", e.typ) }

// request is a unit of work for the owner goroutine.
type request struct {
	msg  ClientMsg
	resp chan reply
}

type reply struct {
	msg  ServerMsg
	mint <-chan types.MintResponse
}

type Server struct {
	eng *engine.Engine
	log logrus.FieldLogger

	inbox    chan request
	done     chan struct{}
	upgrader websocket.Upgrader
}

func New(eng *engine.Engine, log logrus.FieldLogger) *Server {
	return &Server{
		eng:   eng,
		log:   logger.OrDiscard(log).WithField("component", "server"),
		inbox: make(chan request),
		done:  make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Run serves engine requests until ctx is done, then saves progress one
// last time and closes Done. It must be running before any connection is
// accepted.
func (s *Server) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.finalSave()
			return
		case req := <-s.inbox:
			req.resp <- s.handle(ctx, req.msg)
		}
	}
}

// Done is closed once Run has returned. The engine may be used again after.
func (s *Server) Done() <-chan struct{} { return s.done }

func (s *Server) finalSave() {
	if s.eng == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.eng.Save(ctx); err != nil {
		s.log.WithError(err).Error("final save failed")
		return
	}
	s.log.Info("progress saved on shutdown")
}

func (s *Server) handle(ctx context.Context, m ClientMsg) reply {
	var res types.Result
	switch m.Type {
	case TypeSnapshot:
		return reply{msg: ServerMsg{Type: TypeState, Snapshot: s.snapshot()}}
	case TypeActivate:
		res = s.eng.Activate(types.Activation{Kind: m.Kind, Entity: m.Entity, Slot: m.Slot})
	case TypeMove:
		res = s.eng.Move(m.DX, m.DY)
	case TypeMoveTo:
		res = s.eng.MoveTo(types.Vec{X: m.X, Y: m.Y})
	case TypeTick:
		res = s.eng.Tick(m.DT)
	case TypeCommand:
		res = s.eng.Step(m.Input)
	case TypeSave:
		if err := s.eng.Save(ctx); err != nil {
			return reply{msg: ServerMsg{Type: TypeError, Error: err.Error()}}
		}
		res = types.Result{Output: []string{"Progress saved."}}
	case TypeMint:
		return reply{mint: s.eng.RequestMint(ctx)}
	}
	return reply{msg: ServerMsg{Type: TypeResult, Result: &res, Snapshot: s.snapshot()}}
}

func (s *Server) snapshot() *Snapshot {
	snap := &Snapshot{
		Started:  s.eng.Started(),
		Island:   s.eng.IslandIndex(),
		Player:   s.eng.Session.Player,
		Dialogue: s.eng.ActiveDialogueSnapshot(),
		Ledger:   s.eng.LedgerSnapshot(),
		PlaySecs: s.eng.PlaySeconds(),
	}
	if v, ok := s.eng.CurrentRoomSnapshot(); ok {
		snap.Room = &v
	}
	if f, ok := s.eng.Finale(); ok {
		snap.Finale = &f
	}
	return snap
}

// call hands m to the owner goroutine and waits for its reply.
func (s *Server) call(ctx context.Context, m ClientMsg) (reply, error) {
	req := request{msg: m, resp: make(chan reply, 1)}
	select {
	case s.inbox <- req:
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
	select {
	case r := <-req.resp:
		return r, nil
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// Handler upgrades the request and serves the connection.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s.log.WithField("remote", r.RemoteAddr).Info("client connected")
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			m, err := DecodeClientMsg(raw)
			if err != nil {
				if werr := writeJSON(conn, ServerMsg{Type: TypeError, Error: err.Error()}); werr != nil {
					break
				}
				continue
			}
			rep, err := s.call(ctx, m)
			if err != nil {
				break
			}
			out := rep.msg
			if rep.mint != nil {
				resp := <-rep.mint
				out = ServerMsg{Type: TypeMinted, Mint: &resp}
			}
			if err := writeJSON(conn, out); err != nil {
				break
			}
		}
		s.log.WithField("remote", r.RemoteAddr).Info("client disconnected")
	}
}

// Mux routes /ws to the websocket handler.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
