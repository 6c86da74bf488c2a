package supervisor

import (
	"fmt"
	"time"

	"github.com/flawiddsouza/GameLiftLocal/pkg/config"
)

// RespawnPolicy decides how long to wait before restarting a child that
// has already been restarted restarts times in a row. A run that lasts at
// least ResetAfter ends the streak.
type RespawnPolicy interface {
	Delay(restarts int) time.Duration
	ResetAfter() time.Duration
}

type immediate struct{}

func (immediate) Delay(int) time.Duration    { return 0 }
func (immediate) ResetAfter() time.Duration { return 0 }

// Immediate restarts without delay and without limit.
var Immediate RespawnPolicy = immediate{}

// Backoff doubles the delay on each consecutive restart, capped at Max.
// A child that stays up for Max or longer starts again from Initial.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (b Backoff) Delay(restarts int) time.Duration {
	d := b.Initial
	for i := 0; i < restarts && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		d = b.Max
	}
	return d
}

func (b Backoff) ResetAfter() time.Duration { return b.Max }

func PolicyFromConfig(cfg config.Supervisor) (RespawnPolicy, error) {
	switch cfg.RespawnPolicy {
	case "", config.RespawnImmediate:
		return Immediate, nil
	case config.RespawnBackoff:
		return Backoff{Initial: cfg.BackoffInitial, Max: cfg.BackoffMax}, nil
	default:
		return nil, fmt.Errorf("%w: unknown respawnPolicy %q", config.ErrInvalidSupervisorConfig, cfg.RespawnPolicy)
	}
}
