package gateway

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/flawiddsouza/GameLiftLocal/internal/fleet"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultPresenceTTL = 60 * time.Second

type PresenceStore interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type presence struct {
	store      PresenceStore
	instanceID string
	ttl        time.Duration
	interval   time.Duration
	logger     zerolog.Logger
}

type presenceRecord struct {
	Instance    string    `json:"instance"`
	ConnID      uint64    `json:"conn_id"`
	ProcessID   string    `json:"pID,omitempty"`
	FleetID     string    `json:"fleet_id,omitempty"`
	ComputeID   string    `json:"compute_id,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

func newPresence(store PresenceStore, instanceID string, ttl time.Duration, logger zerolog.Logger) *presence {
	if ttl <= 0 {
		ttl = defaultPresenceTTL
	}
	return &presence{store: store, instanceID: instanceID, ttl: ttl, interval: ttl / 3, logger: logger}
}

func presenceKey(connID uint64) string {
	return "gamelift:process:" + strconv.FormatUint(connID, 10)
}

func (p *presence) keepAlive(ctx context.Context, connID uint64, meta fleet.ConnectionMeta) {
	record, err := json.Marshal(presenceRecord{
		Instance:    p.instanceID,
		ConnID:      connID,
		ProcessID:   meta.ProcessID,
		FleetID:     meta.FleetID,
		ComputeID:   meta.ComputeID,
		ConnectedAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error().Err(err).Uint64("conn_id", connID).Msg("marshal presence record")
		return
	}

	if err := p.refresh(ctx, connID, record); err != nil {
		p.logger.Warn().Err(err).Uint64("conn_id", connID).Msg("failed to set initial redis presence")
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.refresh(ctx, connID, record); err != nil {
				p.logger.Warn().Err(err).Uint64("conn_id", connID).Msg("failed to refresh redis presence")
			}
		}
	}
}

func (p *presence) refresh(ctx context.Context, connID uint64, record []byte) error {
	return p.store.Set(ctx, presenceKey(connID), record, p.ttl).Err()
}

func (p *presence) clear(connID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := p.store.Del(ctx, presenceKey(connID)).Err(); err != nil {
		p.logger.Warn().Err(err).Uint64("conn_id", connID).Msg("failed to clear redis presence")
	}
}
