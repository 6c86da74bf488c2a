package sessions

import "time"

// Record is one archived game session as stored in Postgres.
type Record struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	IPAddress      string            `json:"ip_address"`
	Port           int               `json:"port"`
	FleetID        string            `json:"fleet_id,omitempty"`
	MaximumPlayers int               `json:"maximum_players"`
	GameProperties map[string]string `json:"game_properties"`
	ProcessConnID  uint64            `json:"process_conn_id"`
	CorrelationID  string            `json:"correlation_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	ActivatedAt    *time.Time        `json:"activated_at,omitempty"`
	Players        []PlayerRecord    `json:"players"`
}

type PlayerRecord struct {
	PlayerSessionID string `json:"player_session_id"`
	PlayerID        string `json:"player_id"`
	PlayerData      string `json:"player_data"`
	Status          string `json:"status"`
}
