package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/flawiddsouza/GameLiftLocal/internal/contracts"
	"github.com/flawiddsouza/GameLiftLocal/internal/events"
)

// Archive is an events.Sink that writes created and activated game
// sessions to the repository. It never feeds state back to the coordinator.
type Archive struct {
	repo Repository
}

func NewArchive(repo Repository) *Archive {
	return &Archive{repo: repo}
}

func (a *Archive) Name() string { return "postgres-archive" }

func (a *Archive) Deliver(ctx context.Context, evt events.Event) error {
	switch evt.Type {
	case contracts.EventGameSessionCreated, contracts.EventGameSessionActivated:
	default:
		return nil
	}

	env, err := contracts.UnmarshalEnvelope(evt.Raw)
	if err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	decoded, err := contracts.DecodeV1Payload(env)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}

	switch payload := decoded.(type) {
	case contracts.GameSessionCreatedV1:
		return a.repo.SaveGameSession(ctx, recordFromEvent(env, payload))
	case contracts.GameSessionActivatedV1:
		return a.repo.MarkActivated(ctx, payload.GameSessionID, env.TS)
	}
	return nil
}

func (a *Archive) Recent(ctx context.Context, limit int) ([]Record, error) {
	return a.repo.Recent(ctx, limit)
}

func recordFromEvent(env contracts.Envelope, p contracts.GameSessionCreatedV1) Record {
	rec := Record{
		ID:             p.GameSessionID,
		Name:           p.Name,
		IPAddress:      p.IPAddress,
		Port:           p.Port,
		FleetID:        p.FleetID,
		MaximumPlayers: p.MaximumPlayers,
		GameProperties: p.GameProperties,
		ProcessConnID:  p.ProcessConnID,
		CorrelationID:  env.CorrelationID,
		CreatedAt:      time.UnixMilli(p.CreationTimeMillis).UTC(),
		Players:        make([]PlayerRecord, 0, len(p.PlayerSessions)),
	}
	if rec.GameProperties == nil {
		rec.GameProperties = map[string]string{}
	}
	for _, ps := range p.PlayerSessions {
		rec.Players = append(rec.Players, PlayerRecord{
			PlayerSessionID: ps.PlayerSessionID,
			PlayerID:        ps.PlayerID,
			PlayerData:      ps.PlayerData,
			Status:          ps.Status,
		})
	}
	return rec
}
