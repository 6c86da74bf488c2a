package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("archived game session not found")

type Repository interface {
	SaveGameSession(ctx context.Context, rec Record) error
	MarkActivated(ctx context.Context, gameSessionID string, at time.Time) error
	Recent(ctx context.Context, limit int) ([]Record, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS game_sessions (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	ip_address      TEXT NOT NULL,
	port            INTEGER NOT NULL,
	fleet_id        TEXT NOT NULL DEFAULT '',
	maximum_players INTEGER NOT NULL,
	game_properties JSONB NOT NULL DEFAULT '{}'::jsonb,
	process_conn_id BIGINT NOT NULL,
	correlation_id  TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	activated_at    TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS player_sessions (
	game_session_id   TEXT NOT NULL REFERENCES game_sessions(id) ON DELETE CASCADE,
	player_session_id TEXT NOT NULL,
	player_id         TEXT NOT NULL,
	player_data       TEXT NOT NULL,
	status            TEXT NOT NULL,
	PRIMARY KEY (game_session_id, player_session_id)
)`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the archive tables when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SaveGameSession(ctx context.Context, rec Record) error {
	props, err := json.Marshal(rec.GameProperties)
	if err != nil {
		return fmt.Errorf("marshal game properties: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const qInsertSession = `INSERT INTO game_sessions
		(id, name, ip_address, port, fleet_id, maximum_players, game_properties, process_conn_id, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, qInsertSession,
		rec.ID, rec.Name, rec.IPAddress, rec.Port, rec.FleetID, rec.MaximumPlayers,
		string(props), int64(rec.ProcessConnID), rec.CorrelationID, rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert game session: %w", err)
	}

	const qInsertPlayer = `INSERT INTO player_sessions (game_session_id, player_session_id, player_id, player_data, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING`
	for _, p := range rec.Players {
		if _, err := tx.ExecContext(ctx, qInsertPlayer, rec.ID, p.PlayerSessionID, p.PlayerID, p.PlayerData, p.Status); err != nil {
			return fmt.Errorf("insert player session %s: %w", p.PlayerSessionID, err)
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) MarkActivated(ctx context.Context, gameSessionID string, at time.Time) error {
	const q = `UPDATE game_sessions SET activated_at = $2 WHERE id = $1 AND activated_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, gameSessionID, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, gameSessionID)
	}
	return nil
}

// Recent returns the newest archived sessions first, with their players.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]Record, error) {
	const qSessions = `SELECT id, name, ip_address, port, fleet_id, maximum_players, game_properties::text,
		process_conn_id, correlation_id, created_at, activated_at
		FROM game_sessions ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, qSessions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			props     string
			connID    int64
			activated sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.IPAddress, &rec.Port, &rec.FleetID, &rec.MaximumPlayers,
			&props, &connID, &rec.CorrelationID, &rec.CreatedAt, &activated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(props), &rec.GameProperties); err != nil {
			return nil, fmt.Errorf("decode game properties for %s: %w", rec.ID, err)
		}
		rec.ProcessConnID = uint64(connID)
		if activated.Valid {
			at := activated.Time
			rec.ActivatedAt = &at
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const qPlayers = `SELECT player_session_id, player_id, player_data, status
		FROM player_sessions WHERE game_session_id = $1 ORDER BY player_session_id`
	for i := range out {
		players, err := r.players(ctx, qPlayers, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Players = players
	}
	return out, nil
}

func (r *PostgresRepository) players(ctx context.Context, q, gameSessionID string) ([]PlayerRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, gameSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	players := []PlayerRecord{}
	for rows.Next() {
		var p PlayerRecord
		if err := rows.Scan(&p.PlayerSessionID, &p.PlayerID, &p.PlayerData, &p.Status); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
