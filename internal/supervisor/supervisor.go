package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Process is one running child.
type Process interface {
	Pid() int
	// Wait blocks until the child exits and returns its exit code.
	Wait() (int, error)
	Kill() error
}

// Launcher starts the child for a pool slot. identity is 1-based.
type Launcher interface {
	Launch(identity int) (Process, error)
}

type Options struct {
	Size    int
	Stagger time.Duration
	Policy  RespawnPolicy
}

// Supervisor keeps Size children alive. Each slot is respawned with the
// same identity whenever its child exits, until Run's context is canceled.
type Supervisor struct {
	size     int
	stagger  time.Duration
	policy   RespawnPolicy
	launcher Launcher
	logger   zerolog.Logger

	mu       sync.Mutex
	stopping bool
	running  map[int]Process

	sleep func(ctx context.Context, d time.Duration) bool
	now   func() time.Time
}

func New(launcher Launcher, logger zerolog.Logger, opts Options) *Supervisor {
	if opts.Policy == nil {
		opts.Policy = Immediate
	}
	return &Supervisor{
		size:     opts.Size,
		stagger:  opts.Stagger,
		policy:   opts.Policy,
		launcher: launcher,
		logger:   logger,
		running:  make(map[int]Process),
		sleep:    sleepContext,
		now:      time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Run starts the pool and blocks until ctx is canceled or a child fails
// to spawn. Either way every tracked child is killed before returning; a
// spawn failure is returned as the error.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, s.size)
	var wg sync.WaitGroup
	for identity := 1; identity <= s.size; identity++ {
		if identity > 1 && !s.sleep(ctx, s.stagger) {
			break
		}
		wg.Add(1)
		go func(identity int) {
			defer wg.Done()
			if err := s.keepAlive(ctx, identity); err != nil {
				errCh <- err
				cancel()
			}
		}(identity)
	}

	<-ctx.Done()
	s.killAll()
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func (s *Supervisor) keepAlive(ctx context.Context, identity int) error {
	for restarts := 0; ; restarts++ {
		started := s.now()
		proc, err := s.launcher.Launch(identity)
		if err != nil {
			s.logger.Error().Err(err).Int("identity", identity).Msg("failed to spawn child process")
			return fmt.Errorf("spawn process %d: %w", identity, err)
		}
		if !s.track(identity, proc) {
			_ = proc.Kill()
			_, _ = proc.Wait()
			return nil
		}
		s.logger.Info().Int("identity", identity).Int("pid", proc.Pid()).Int("restarts", restarts).Msg("child process started")

		code, waitErr := proc.Wait()
		s.untrack(identity, proc)

		evt := s.logger.Info()
		if code != 0 || waitErr != nil {
			evt = s.logger.Warn().Err(waitErr)
		}
		evt.Int("identity", identity).Int("pid", proc.Pid()).Int("exit_code", code).
			Msgf("child process exited with code %d", code)

		if ctx.Err() != nil {
			return nil
		}
		if s.now().Sub(started) >= s.policy.ResetAfter() {
			restarts = 0
		}
		if !s.sleep(ctx, s.policy.Delay(restarts)) {
			return nil
		}
	}
}

func (s *Supervisor) track(identity int, proc Process) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.running[identity] = proc
	return true
}

func (s *Supervisor) untrack(identity int, proc Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[identity] == proc {
		delete(s.running, identity)
	}
}

func (s *Supervisor) killAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopping = true
	for identity, proc := range s.running {
		if err := proc.Kill(); err != nil {
			s.logger.Warn().Err(err).Int("identity", identity).Int("pid", proc.Pid()).Msg("kill child process")
			continue
		}
		s.logger.Info().Int("identity", identity).Int("pid", proc.Pid()).Msg("killed child process")
	}
}

// Running returns identity -> pid for the children currently alive.
func (s *Supervisor) Running() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.running))
	for identity, proc := range s.running {
		out[identity] = proc.Pid()
	}
	return out
}
