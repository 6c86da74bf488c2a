package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/flawiddsouza/GameLiftLocal/internal/fleet"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 70 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 1 << 20
	sendBufferSize = 64
)

var ErrSendBufferFull = errors.New("send buffer full")

// Fleet is the coordinator surface the gateway drives.
type Fleet interface {
	Connect(meta fleet.ConnectionMeta, sender fleet.Sender) uint64
	Disconnect(connID uint64)
	Dispatch(connID uint64, payload []byte)

	Processes() []fleet.Process
	GameSessions() []fleet.GameSession
	GameSession(id string) (fleet.GameSession, bool)
}

type Server struct {
	fleet    Fleet
	logger   zerolog.Logger
	presence *presence
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[uint64]*clientConn
}

type Option func(*Server)

// WithPresence mirrors every open connection into Redis under a TTL key.
func WithPresence(store PresenceStore, instanceID string, ttl time.Duration) Option {
	return func(s *Server) {
		if store != nil {
			s.presence = newPresence(store, instanceID, ttl, s.logger)
		}
	}
}

func NewServer(f Fleet, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		fleet:  f,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[uint64]*clientConn),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register mounts the protocol endpoint on every path not claimed by a
// more specific route.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.handleRoot)
	r.Get("/*", s.handleRoot)
	s.registerInspection(r)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Nothing to see here!"))
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("upgrade websocket")
		return
	}
	s.serve(r.Context(), metaFromQuery(r.URL.Query()), conn)
}

// metaFromQuery reads the connection metadata game servers put on the
// connect URL. Both the SDK casing and lower camel case are accepted.
func metaFromQuery(q url.Values) fleet.ConnectionMeta {
	return fleet.ConnectionMeta{
		ProcessID:     firstOf(q, "pID", "pid"),
		SdkVersion:    firstOf(q, "sdkVersion", "SdkVersion"),
		SdkLanguage:   firstOf(q, "sdkLanguage", "SdkLanguage"),
		Authorization: firstOf(q, "Authorization", "authorization"),
		ComputeID:     firstOf(q, "ComputeId", "computeId"),
		FleetID:       firstOf(q, "FleetId", "fleetId"),
	}
}

func firstOf(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func (s *Server) serve(reqCtx context.Context, meta fleet.ConnectionMeta, conn *websocket.Conn) {
	cc := newClientConn(conn)
	connID := s.fleet.Connect(meta, cc)
	logger := s.logger.With().Uint64("conn_id", connID).Logger()

	s.mu.Lock()
	s.conns[connID] = cc
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(reqCtx)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		cc.writePump()
	}()
	if s.presence != nil {
		go s.presence.keepAlive(ctx, connID, meta)
	}

	defer func() {
		cancel()
		s.fleet.Disconnect(connID)
		s.mu.Lock()
		delete(s.conns, connID)
		s.mu.Unlock()
		cc.close()
		<-writerDone
		if s.presence != nil {
			s.presence.clear(connID)
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Warn().Err(err).Msg("websocket read")
			}
			return
		}
		s.fleet.Dispatch(connID, payload)
	}
}

// Close sends a going-away close frame to every open connection.
func (s *Server) Close() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deadline := time.Now().Add(writeWait)
	for _, cc := range s.conns {
		_ = cc.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = cc.conn.Close()
	}
}

// Connections reports the number of open websocket connections.
func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}
