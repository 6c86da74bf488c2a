package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType identifies the semantic event kind.
type EventType string

const (
	EventProcessConnected     EventType = "process.connected"
	EventProcessActivated     EventType = "process.activated"
	EventProcessDisconnected  EventType = "process.disconnected"
	EventGameSessionCreated   EventType = "game_session.created"
	EventGameSessionActivated EventType = "game_session.activated"
)

var validEventTypes = map[EventType]struct{}{
	EventProcessConnected:     {},
	EventProcessActivated:     {},
	EventProcessDisconnected:  {},
	EventGameSessionCreated:   {},
	EventGameSessionActivated: {},
}

// Envelope is the JSON-serializable fleet event envelope.
type Envelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	TS            time.Time       `json:"ts"`
	CorrelationID string          `json:"correlation_id"`
	ConnID        *uint64         `json:"conn_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

var ErrInvalidEventType = errors.New("invalid event type")

// ValidateEventType verifies whether the provided event type is known.
func ValidateEventType(eventType EventType) error {
	if _, ok := validEventTypes[eventType]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidEventType, eventType)
	}
	return nil
}

// MarshalV1 marshals an envelope with a v1 payload struct.
func MarshalV1[T any](id string, eventType EventType, ts time.Time, correlationID string, connID *uint64, payload T) ([]byte, error) {
	if err := ValidateEventType(eventType); err != nil {
		return nil, err
	}

	payloadRaw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{
		ID:            id,
		Type:          eventType,
		TS:            ts,
		CorrelationID: correlationID,
		ConnID:        connID,
		Payload:       payloadRaw,
	})
}

// UnmarshalEnvelope unmarshals and validates an event envelope.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	if err := ValidateEventType(env.Type); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// V1 payload schemas.
type ProcessConnectedV1 struct {
	ProcessID   string `json:"process_id,omitempty"`
	SdkVersion  string `json:"sdk_version,omitempty"`
	SdkLanguage string `json:"sdk_language,omitempty"`
	ComputeID   string `json:"compute_id,omitempty"`
	FleetID     string `json:"fleet_id,omitempty"`
}

type ProcessActivatedV1 struct {
	Port     int      `json:"port"`
	LogPaths []string `json:"log_paths"`
}

type ProcessDisconnectedV1 struct {
	GameSessionID string `json:"game_session_id,omitempty"`
}

type PlayerSessionV1 struct {
	PlayerSessionID string `json:"player_session_id"`
	PlayerID        string `json:"player_id"`
	PlayerData      string `json:"player_data"`
	Status          string `json:"status"`
}

type GameSessionCreatedV1 struct {
	GameSessionID      string            `json:"game_session_id"`
	Name               string            `json:"name"`
	MaximumPlayers     int               `json:"maximum_players"`
	IPAddress          string            `json:"ip_address"`
	Port               int               `json:"port"`
	FleetID            string            `json:"fleet_id,omitempty"`
	GameSessionData    string            `json:"game_session_data"`
	MatchmakerData     string            `json:"matchmaker_data"`
	GameProperties     map[string]string `json:"game_properties,omitempty"`
	PlayerSessions     []PlayerSessionV1 `json:"player_sessions"`
	ProcessConnID      uint64            `json:"process_conn_id"`
	RequesterConnID    uint64            `json:"requester_conn_id"`
	CreationTimeMillis int64             `json:"creation_time_ms"`
}

type GameSessionActivatedV1 struct {
	GameSessionID string `json:"game_session_id"`
}

// DecodeV1Payload decodes the payload into a v1 schema by event type.
func DecodeV1Payload(env Envelope) (any, error) {
	switch env.Type {
	case EventProcessConnected:
		var payload ProcessConnectedV1
		return payload, json.Unmarshal(env.Payload, &payload)
	case EventProcessActivated:
		var payload ProcessActivatedV1
		return payload, json.Unmarshal(env.Payload, &payload)
	case EventProcessDisconnected:
		var payload ProcessDisconnectedV1
		return payload, json.Unmarshal(env.Payload, &payload)
	case EventGameSessionCreated:
		var payload GameSessionCreatedV1
		return payload, json.Unmarshal(env.Payload, &payload)
	case EventGameSessionActivated:
		var payload GameSessionActivatedV1
		return payload, json.Unmarshal(env.Payload, &payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEventType, env.Type)
	}
}

// NATS subject mapping.
const (
	SubjectProcessConnected     = "gamelift.local.process.connected"
	SubjectProcessActivated     = "gamelift.local.process.activated"
	SubjectProcessDisconnected  = "gamelift.local.process.disconnected"
	SubjectGameSessionCreated   = "gamelift.local.game_session.created"
	SubjectGameSessionActivated = "gamelift.local.game_session.activated"
)

// SubjectForType maps a contract event type to its NATS subject.
func SubjectForType(eventType EventType) (string, error) {
	switch eventType {
	case EventProcessConnected:
		return SubjectProcessConnected, nil
	case EventProcessActivated:
		return SubjectProcessActivated, nil
	case EventProcessDisconnected:
		return SubjectProcessDisconnected, nil
	case EventGameSessionCreated:
		return SubjectGameSessionCreated, nil
	case EventGameSessionActivated:
		return SubjectGameSessionActivated, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidEventType, eventType)
	}
}
