package fleet

import (
	"sync"
	"time"

	"github.com/flawiddsouza/GameLiftLocal/internal/contracts"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Emitter publishes fleet events. It must not block.
type Emitter interface {
	Emit(eventType contracts.EventType, correlationID string, connID uint64, payload any)
}

type noopEmitter struct{}

func (noopEmitter) Emit(contracts.EventType, string, uint64, any) {}

type Options struct {
	// IPAddress is the address reported for every game session.
	IPAddress string
	Events    Emitter
}

// Coordinator owns the process registry and the session store. Every
// operation holds mu for its whole duration, so message handlers run to
// completion without interleaving.
type Coordinator struct {
	mu         sync.Mutex
	registry   *Registry
	store      *Store
	nextConnID uint64

	ipAddress string
	events    Emitter
	logger    zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewCoordinator(logger zerolog.Logger, opts Options) *Coordinator {
	if opts.IPAddress == "" {
		opts.IPAddress = "localhost"
	}
	if opts.Events == nil {
		opts.Events = noopEmitter{}
	}
	return &Coordinator{
		registry:  NewRegistry(),
		store:     NewStore(),
		ipAddress: opts.IPAddress,
		events:    opts.Events,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Connect registers a new connection and returns its id.
func (c *Coordinator) Connect(meta ConnectionMeta, sender Sender) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextConnID++
	p := &Process{
		ConnID:      c.nextConnID,
		Meta:        meta,
		ConnectedAt: c.now(),
		sender:      sender,
	}
	if err := c.registry.Add(p); err != nil {
		c.logger.Error().Err(err).Msg("register connection")
		return p.ConnID
	}

	c.logger.Info().
		Uint64("conn_id", p.ConnID).
		Str("pid", meta.ProcessID).
		Str("sdk_version", meta.SdkVersion).
		Str("sdk_language", meta.SdkLanguage).
		Msg("connection opened")
	c.events.Emit(contracts.EventProcessConnected, "", p.ConnID, contracts.ProcessConnectedV1{
		ProcessID:   meta.ProcessID,
		SdkVersion:  meta.SdkVersion,
		SdkLanguage: meta.SdkLanguage,
		ComputeID:   meta.ComputeID,
		FleetID:     meta.FleetID,
	})
	return p.ConnID
}

// Disconnect removes the connection's process. A game session bound to it
// stays in the store.
func (c *Coordinator) Disconnect(connID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.registry.Remove(connID)
	if !ok {
		return
	}
	evt := c.logger.Info().Uint64("conn_id", connID)
	if p.GameSessionID != "" {
		evt = evt.Str("game_session_id", p.GameSessionID)
	}
	evt.Msg("connection closed")
	c.events.Emit(contracts.EventProcessDisconnected, "", connID, contracts.ProcessDisconnectedV1{GameSessionID: p.GameSessionID})
}

func (c *Coordinator) Processes() []Process {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := c.registry.All()
	out := make([]Process, 0, len(all))
	for _, p := range all {
		out = append(out, p.snapshot())
	}
	return out
}

func (c *Coordinator) GameSessions() []GameSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := c.store.All()
	out := make([]GameSession, 0, len(all))
	for _, gs := range all {
		out = append(out, gs.snapshot())
	}
	return out
}

func (c *Coordinator) GameSession(id string) (GameSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gs, ok := c.store.Get(id)
	if !ok {
		return GameSession{}, false
	}
	return gs.snapshot(), true
}

func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	var st Stats
	for _, p := range c.registry.All() {
		st.Connected++
		if p.Activated {
			st.Activated++
		}
		if p.Free() {
			st.Free++
		}
	}
	for _, gs := range c.store.All() {
		st.GameSessions++
		st.PlayerSessions += len(gs.PlayerSessions)
	}
	return st
}

func (c *Coordinator) reply(p *Process, msg any) {
	if err := p.send(msg); err != nil {
		c.logger.Warn().Err(err).Uint64("conn_id", p.ConnID).Msg("send to connection")
	}
}
