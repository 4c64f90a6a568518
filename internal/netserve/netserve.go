// Package netserve hosts formula evaluation behind a WebSocket, one
// request/response pair per message, for hosts that keep a long-lived
// connection open instead of shelling out per-record. An `http.Server`
// fronts a `websocket.Upgrader`, tracking open connections in a mutex-
// guarded map with one reader goroutine per connection.
package netserve

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"formulang/internal/batch"
	"formulang/internal/bytecode"
	"formulang/internal/ferrors"
	"formulang/internal/hostctx"
	"formulang/internal/value"
	"formulang/internal/vm"
)

// Request is one formula evaluation request sent as a WebSocket text
// message. Either Formula (compiled fresh, and cached by the server's
// singleflight Compiler) or Bytecode (already-compiled, e.g. round-
// tripped through internal/cache) must be set.
type Request struct {
	Formula  string          `json:"formula,omitempty"`
	Bytecode []byte          `json:"bytecode,omitempty"`
	Record   json.RawMessage `json:"record"`
	Clock    clockJSON       `json:"clock"`
}

type clockJSON struct {
	Now        int64 `json:"now"`
	Today      int64 `json:"today"`
	UpdateTime int64 `json:"updateTime"`
	CreateTime int64 `json:"createTime"`
}

// Response is the reply written for a Request: exactly one of Result or
// Error is populated.
type Response struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Server accepts WebSocket connections and evaluates one formula
// request per inbound message.
type Server struct {
	Addr     string
	compiler batch.Compiler

	upgrader websocket.Upgrader
	http     *http.Server

	mu      sync.RWMutex
	clients map[string]*websocket.Conn
}

// New builds a Server listening on addr once Serve is called.
func New(addr string) *Server {
	s := &Server{
		Addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*websocket.Conn),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/eval", s.handleEval)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe blocks, accepting connections until the server errors
// or is shut down.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Handler exposes the server's HTTP handler directly, for embedding in
// a larger mux or driving from an httptest.Server in tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Close stops the server and drops all tracked connections.
func (s *Server) Close() error {
	s.mu.Lock()
	for id, conn := range s.clients {
		conn.Close()
		delete(s.clients, id)
	}
	s.mu.Unlock()
	return s.http.Close()
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("netserve: upgrade failed: %v", err)
		return
	}
	id := fmt.Sprintf("conn_%d", time.Now().UnixNano())
	s.mu.Lock()
	s.clients[id] = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, id)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		resp := s.evaluate(payload)
		out, err := json.Marshal(resp)
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			return
		}
	}
}

func (s *Server) evaluate(payload []byte) Response {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return Response{Error: fmt.Sprintf("invalid request JSON: %s", err)}
	}

	chunk, err := s.resolveChunk(req)
	if err != nil {
		return Response{Error: err.Error()}
	}

	heap, err := hostctx.Build(req.Record, chunk, hostctx.TimeContext{
		Now:        req.Clock.Now,
		Today:      req.Clock.Today,
		UpdateTime: req.Clock.UpdateTime,
		CreateTime: req.Clock.CreateTime,
	})
	if err != nil {
		return Response{Error: err.Error()}
	}

	out, err := vm.Run(chunk, vm.NewRuntimeContext(heap))
	if err != nil {
		return Response{Error: err.Error()}
	}
	return Response{Result: value.Display(out)}
}

func (s *Server) resolveChunk(req Request) (*bytecode.Chunk, error) {
	if len(req.Bytecode) > 0 {
		return bytecode.Decode(req.Bytecode)
	}
	if req.Formula == "" {
		return nil, ferrors.New(ferrors.ParseError, "request has neither formula nor bytecode")
	}
	return s.compiler.Compile(req.Formula)
}
