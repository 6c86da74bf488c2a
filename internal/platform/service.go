package platform

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/flawiddsouza/GameLiftLocal/internal/events"
	"github.com/flawiddsouza/GameLiftLocal/internal/fleet"
	"github.com/flawiddsouza/GameLiftLocal/internal/gateway"
	"github.com/flawiddsouza/GameLiftLocal/internal/sessions"
	"github.com/flawiddsouza/GameLiftLocal/internal/supervisor"
	"github.com/flawiddsouza/GameLiftLocal/pkg/bus"
	"github.com/flawiddsouza/GameLiftLocal/pkg/config"
	"github.com/flawiddsouza/GameLiftLocal/pkg/httpserver"
	"github.com/flawiddsouza/GameLiftLocal/pkg/logging"
	"github.com/flawiddsouza/GameLiftLocal/pkg/storage"
	"github.com/google/uuid"
)

// RunCoordinator serves the fleet coordinator until SIGINT or SIGTERM.
// NATS, Redis and Postgres are only used when their address is configured.
func RunCoordinator() error {
	cfg, err := config.Load("coordinator")
	if err != nil {
		return err
	}
	logger := logging.New(cfg.AppName, cfg.ServiceName, cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sinks []events.Sink
	var archive *sessions.Archive

	if cfg.NATSURL != "" {
		nc, err := bus.Connect(cfg.NATSURL, cfg.AppName+"-"+cfg.ServiceName, logger)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer nc.Close()
		sinks = append(sinks, events.NewNATSSink(nc))
		logger.Info().Str("url", cfg.NATSURL).Msg("publishing fleet events to nats")
	}

	if cfg.PostgresURL != "" {
		db, err := storage.NewPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := sessions.NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure archive schema: %w", err)
		}
		archive = sessions.NewArchive(repo)
		sinks = append(sinks, archive)
		logger.Info().Msg("archiving game sessions to postgres")
	}

	var gwOpts []gateway.Option
	if cfg.RedisAddr != "" {
		rdb := storage.NewRedis(cfg.RedisAddr)
		defer rdb.Close()
		instanceID := uuid.NewString()
		gwOpts = append(gwOpts, gateway.WithPresence(rdb, instanceID, cfg.PresenceTTL))
		logger.Info().Str("addr", cfg.RedisAddr).Str("instance_id", instanceID).Msg("mirroring connection presence to redis")
	}

	notifier := events.NewNotifier(logger, cfg.EventBuffer, sinks...)
	go notifier.Run(ctx)

	coord := fleet.NewCoordinator(logger, fleet.Options{
		IPAddress: cfg.PublicIPAddress,
		Events:    notifier,
	})
	gw := gateway.NewServer(coord, logger, gwOpts...)
	stopClose := context.AfterFunc(ctx, gw.Close)
	defer stopClose()

	r := httpserver.NewRouter(cfg.ServiceName, fleetGauges(coord, gw, notifier))
	gw.Register(r)
	if archive != nil {
		sessions.NewHandler(archive).Register(r)
	}

	logger.Info().Str("public_ip", cfg.PublicIPAddress).Msg("fleet coordinator ready")
	return httpserver.Run(ctx, logger, cfg.HTTPPort, r, cfg.ShutdownTimeout)
}

func fleetGauges(coord *fleet.Coordinator, gw *gateway.Server, notifier *events.Notifier) httpserver.GaugeFunc {
	return func() []httpserver.Gauge {
		st := coord.Stats()
		return []httpserver.Gauge{
			{Name: "websocket_connections", Help: "Open websocket connections.", Value: float64(gw.Connections())},
			{Name: "processes_connected", Help: "Registered game server processes.", Value: float64(st.Connected)},
			{Name: "processes_activated", Help: "Processes that called ActivateServerProcess.", Value: float64(st.Activated)},
			{Name: "processes_free", Help: "Activated processes without a game session.", Value: float64(st.Free)},
			{Name: "game_sessions", Help: "Game sessions created since start.", Value: float64(st.GameSessions)},
			{Name: "player_sessions", Help: "Player sessions created since start.", Value: float64(st.PlayerSessions)},
			{Name: "events_dropped", Help: "Fleet events dropped because the queue was full.", Value: float64(notifier.Dropped())},
		}
	}
}

// RunSupervisor keeps the configured pool of game servers running until
// SIGINT or SIGTERM. A child that cannot be spawned is fatal.
func RunSupervisor(configPath string) error {
	cfg, err := config.LoadSupervisor(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.AppName, "supervisor", cfg.Env, cfg.LogLevel)

	policy, err := supervisor.PolicyFromConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	launcher := supervisor.NewExecLauncher(cfg.WorkingDir, cfg.Command, cfg.CommandArgs)
	sup := supervisor.New(launcher, logger, supervisor.Options{
		Size:    cfg.ProcessCount,
		Stagger: cfg.StaggerDelay,
		Policy:  policy,
	})
	logger.Info().
		Int("process_count", cfg.ProcessCount).
		Str("command", cfg.Command).
		Str("working_dir", cfg.WorkingDir).
		Str("respawn_policy", cfg.RespawnPolicy).
		Msg("starting game server pool")
	return sup.Run(ctx)
}
