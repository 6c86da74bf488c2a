package fleet

import (
	"net/http"
	"time"

	"github.com/flawiddsouza/GameLiftLocal/internal/contracts"
	"github.com/flawiddsouza/GameLiftLocal/internal/protocol"
)

const (
	defaultMaxPlayers     = 4
	defaultSessionName    = "game_session_name"
	defaultSessionData    = "game_session_data"
	defaultMatchmakerData = "{}"
)

// CreateGameSessionResult is the Data of a successful CreateGameSession reply.
type CreateGameSessionResult struct {
	GameProcess Process     `json:"GameProcess"`
	GameSession GameSession `json:"GameSession"`
}

// BuildGameSession assembles a session bound to target. Player sessions are
// RESERVED and share the session's address.
func BuildGameSession(id string, req *protocol.CreateGameSession, target *Process, ipAddress string, now time.Time) *GameSession {
	port := 0
	if target.Port != nil {
		port = *target.Port
	}
	millis := now.UnixMilli()

	gs := &GameSession{
		GameSessionID:             id,
		Name:                      stringOr(req.GameSessionName, defaultSessionName),
		MaximumPlayerSessionCount: defaultMaxPlayers,
		GameSessionData:           stringOr(req.GameSessionData, defaultSessionData),
		MatchmakerData:            stringOr(req.MatchmakerData, defaultMatchmakerData),
		GameProperties:            make(map[string]string, len(req.GameProperties)),
		IPAddress:                 ipAddress,
		Port:                      port,
		FleetID:                   target.Meta.FleetID,
		ProcessConnID:             target.ConnID,
		CreationTime:              millis,
		PlayerSessions:            make([]PlayerSession, 0, len(req.PlayerSessions)),
	}
	if req.MaximumPlayerSessionCount != nil {
		gs.MaximumPlayerSessionCount = *req.MaximumPlayerSessionCount
	}
	for k, v := range req.GameProperties {
		gs.GameProperties[k] = v
	}
	for _, ps := range req.PlayerSessions {
		gs.PlayerSessions = append(gs.PlayerSessions, PlayerSession{
			PlayerSessionID: ps.PlayerID,
			PlayerID:        ps.PlayerID,
			GameSessionID:   id,
			FleetID:         target.Meta.FleetID,
			IPAddress:       ipAddress,
			Port:            port,
			DNSName:         ipAddress,
			Status:          PlayerSessionReserved,
			PlayerData:      *ps.PlayerData,
			CreationTime:    millis,
			TerminationTime: millis,
		})
	}
	return gs
}

func stringOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

// createGameSession binds the request to the first free process. Nothing
// is created unless a process is found.
func (c *Coordinator) createGameSession(requester *Process, req *protocol.CreateGameSession) {
	target, ok := c.registry.FirstFree()
	if !ok {
		c.logger.Info().Uint64("conn_id", requester.ConnID).Str("request_id", req.RequestID).Msg("no free game process")
		c.reply(requester, protocol.Fail(protocol.ActionCreateGameSession, req.RequestID, http.StatusBadRequest, protocol.NoFreeProcessMessage))
		return
	}

	gs := BuildGameSession(c.newID(), req, target, c.ipAddress, c.now())
	if err := c.store.Add(gs); err != nil {
		c.logger.Error().Err(err).Str("request_id", req.RequestID).Msg("store game session")
		c.reply(requester, protocol.Fail(protocol.ActionCreateGameSession, req.RequestID, http.StatusInternalServerError, "Failed to create game session"))
		return
	}
	target.GameSessionID = gs.GameSessionID

	c.reply(target, protocol.CreateGameSessionPush{
		Action:                    protocol.ActionCreateGameSession,
		MaximumPlayerSessionCount: gs.MaximumPlayerSessionCount,
		Port:                      gs.Port,
		IPAddress:                 gs.IPAddress,
		GameSessionID:             gs.GameSessionID,
		GameSessionName:           gs.Name,
		GameSessionData:           gs.GameSessionData,
		MatchmakerData:            gs.MatchmakerData,
		GameProperties:            gs.GameProperties,
	})
	c.reply(requester, protocol.OK(protocol.ActionCreateGameSession, req.RequestID, CreateGameSessionResult{
		GameProcess: target.snapshot(),
		GameSession: gs.snapshot(),
	}))

	c.logger.Info().
		Uint64("conn_id", requester.ConnID).
		Uint64("process_conn_id", target.ConnID).
		Str("game_session_id", gs.GameSessionID).
		Int("players", len(gs.PlayerSessions)).
		Msg("game session created")
	c.events.Emit(contracts.EventGameSessionCreated, req.RequestID, target.ConnID, gameSessionCreatedEvent(gs, requester.ConnID))
}

func gameSessionCreatedEvent(gs *GameSession, requesterConnID uint64) contracts.GameSessionCreatedV1 {
	players := make([]contracts.PlayerSessionV1, 0, len(gs.PlayerSessions))
	for _, ps := range gs.PlayerSessions {
		players = append(players, contracts.PlayerSessionV1{
			PlayerSessionID: ps.PlayerSessionID,
			PlayerID:        ps.PlayerID,
			PlayerData:      ps.PlayerData,
			Status:          string(ps.Status),
		})
	}
	return contracts.GameSessionCreatedV1{
		GameSessionID:      gs.GameSessionID,
		Name:               gs.Name,
		MaximumPlayers:     gs.MaximumPlayerSessionCount,
		IPAddress:          gs.IPAddress,
		Port:               gs.Port,
		FleetID:            gs.FleetID,
		GameSessionData:    gs.GameSessionData,
		MatchmakerData:     gs.MatchmakerData,
		GameProperties:     gs.GameProperties,
		PlayerSessions:     players,
		ProcessConnID:      gs.ProcessConnID,
		RequesterConnID:    requesterConnID,
		CreationTimeMillis: gs.CreationTime,
	}
}
