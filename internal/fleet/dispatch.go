package fleet

import (
	"errors"

	"github.com/flawiddsouza/GameLiftLocal/internal/contracts"
	"github.com/flawiddsouza/GameLiftLocal/internal/protocol"
)

// DescribePlayerSessionsResult is the Data of a DescribePlayerSessions reply.
// Results are never paginated, so NextToken is always null.
type DescribePlayerSessionsResult struct {
	PlayerSessions []PlayerSession `json:"PlayerSessions"`
	NextToken      *string         `json:"NextToken"`
}

// Dispatch decodes one inbound frame from connID and runs its handler.
// Unknown actions are ignored; invalid frames are logged and dropped.
func (c *Coordinator) Dispatch(connID uint64, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.registry.Get(connID)
	if !ok {
		c.logger.Warn().Uint64("conn_id", connID).Msg("message from unregistered connection")
		return
	}

	req, err := protocol.Decode(payload)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownAction) {
			c.logger.Debug().Err(err).Uint64("conn_id", connID).Msg("ignoring message")
			return
		}
		c.logger.Warn().Err(err).Uint64("conn_id", connID).Msg("dropping invalid message")
		return
	}

	switch r := req.(type) {
	case *protocol.ActivateServerProcess:
		c.activateServerProcess(p, r)
	case *protocol.GetFleetRoleCredentials:
		c.reply(p, protocol.OK(r.Action(), r.RequestID, protocol.PlaceholderCredentials()))
	case *protocol.HeartbeatServerProcess:
		c.logger.Debug().Uint64("conn_id", p.ConnID).Bool("healthy", *r.HealthStatus).Msg("heartbeat")
		c.reply(p, protocol.OK(r.Action(), r.RequestID, nil))
	case *protocol.CreateGameSession:
		c.createGameSession(p, r)
	case *protocol.ActivateGameSession:
		c.activateGameSession(p, r)
	case *protocol.AcceptPlayerSession:
		c.logger.Info().
			Uint64("conn_id", p.ConnID).
			Str("game_session_id", r.GameSessionID).
			Str("player_session_id", r.PlayerSessionID).
			Msg("player session accepted")
	case *protocol.DescribePlayerSessions:
		c.describePlayerSessions(p, r)
	}
}

func (c *Coordinator) activateServerProcess(p *Process, r *protocol.ActivateServerProcess) {
	port := *r.Port
	p.Port = &port
	p.LogPaths = append([]string{}, r.LogPaths...)
	p.Activated = true
	if p.Meta.SdkVersion == "" {
		p.Meta.SdkVersion = *r.SdkVersion
	}
	if p.Meta.SdkLanguage == "" {
		p.Meta.SdkLanguage = *r.SdkLanguage
	}

	c.logger.Info().
		Uint64("conn_id", p.ConnID).
		Int("port", port).
		Strs("log_paths", p.LogPaths).
		Msg("server process activated")
	c.events.Emit(contracts.EventProcessActivated, r.RequestID, p.ConnID, contracts.ProcessActivatedV1{Port: port, LogPaths: p.LogPaths})
}

func (c *Coordinator) activateGameSession(p *Process, r *protocol.ActivateGameSession) {
	if p.GameSessionID != r.GameSessionID {
		c.logger.Warn().
			Uint64("conn_id", p.ConnID).
			Str("game_session_id", r.GameSessionID).
			Str("bound_game_session_id", p.GameSessionID).
			Msg("activating a game session not bound to this process")
	}
	p.SessionActivated = true

	c.logger.Info().Uint64("conn_id", p.ConnID).Str("game_session_id", r.GameSessionID).Msg("game session activated")
	c.events.Emit(contracts.EventGameSessionActivated, r.RequestID, p.ConnID, contracts.GameSessionActivatedV1{GameSessionID: r.GameSessionID})
}

func (c *Coordinator) describePlayerSessions(p *Process, r *protocol.DescribePlayerSessions) {
	var found []PlayerSession
	if r.GameSessionID != "" {
		found = c.store.PlayerSessions(r.GameSessionID)
	} else if ps, ok := c.store.FindPlayerSession(r.PlayerSessionID); ok {
		found = []PlayerSession{ps}
	} else {
		found = []PlayerSession{}
	}
	c.reply(p, protocol.OK(r.Action(), r.RequestID, DescribePlayerSessionsResult{PlayerSessions: found}))
}
