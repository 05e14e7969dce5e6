package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"breedplan.ai/internal/breeding/runner"
	"breedplan.ai/internal/protocol"
)

// Server answers PLAN messages over a websocket. Requests on one connection
// are handled in order; at most MaxInflight run at once across connections.
type Server struct {
	runner *runner.Runner
	log    *log.Logger

	upgrader websocket.Upgrader
	slots    chan struct{}

	// Timeout bounds one planning run.
	Timeout time.Duration

	planTotal  atomic.Uint64
	errorTotal atomic.Uint64
	busyTotal  atomic.Uint64
}

type Stats struct {
	PlanTotal   uint64
	ErrorTotal  uint64
	BusyTotal   uint64
	Inflight    int
	MaxInflight int
}

func (s *Server) Stats() Stats {
	return Stats{
		PlanTotal:   s.planTotal.Load(),
		ErrorTotal:  s.errorTotal.Load(),
		BusyTotal:   s.busyTotal.Load(),
		Inflight:    len(s.slots),
		MaxInflight: cap(s.slots),
	}
}

func NewServer(r *runner.Runner, logger *log.Logger, maxInflight int) *Server {
	if maxInflight <= 0 {
		maxInflight = 4
	}
	s := &Server{
		runner: r,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		slots:   make(chan struct{}, maxInflight),
		Timeout: 30 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 8)
		var wg sync.WaitGroup
		wg.Add(1)
		// Writer goroutine.
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			reply := s.handle(ctx, msg)
			if _, ok := reply.(protocol.ErrorMsg); ok {
				s.errorTotal.Add(1)
			} else {
				s.planTotal.Add(1)
			}
			b, err := json.Marshal(reply)
			if err != nil {
				s.logf("marshal reply: %v", err)
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		wg.Wait()
	}
}

func (s *Server) handle(ctx context.Context, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.NewError("", protocol.ErrProtoBadRequest, "malformed message")
	}
	if base.Type != protocol.TypePlan {
		return protocol.NewError(base.RequestID, protocol.ErrProtoBadRequest, "expected PLAN, got "+base.Type)
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.NewError(base.RequestID, protocol.ErrProtoVersion, "bad protocol_version")
	}
	m, err := protocol.DecodePlan(msg)
	if err != nil {
		return protocol.NewError(base.RequestID, protocol.ErrBadRequest, err.Error())
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	default:
		s.busyTotal.Add(1)
		return protocol.NewError(m.RequestID, protocol.ErrBusy, "too many plans in flight")
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	start := time.Now()
	res, err := s.runner.Handle(ctx, m)
	if err != nil {
		var pe *runner.Error
		if errors.As(err, &pe) {
			return protocol.NewError(m.RequestID, pe.Code, pe.Message, pe.Suggestions...)
		}
		return protocol.NewError(m.RequestID, protocol.ErrInternal, err.Error())
	}
	s.logf("run %s species=%s ivs=%v evaluated=%d returned=%d in %s",
		res.RunID, m.Species, m.IVs, res.Evaluated, len(res.Plans), time.Since(start).Round(time.Millisecond))
	return res
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
