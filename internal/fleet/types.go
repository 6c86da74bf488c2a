package fleet

import (
	"errors"
	"time"
)

// Sender delivers one outbound message to a connection. Implementations
// must not block; a closed connection returns ErrDisconnected.
type Sender interface {
	Send(msg any) error
}

var (
	ErrDisconnected         = errors.New("connection closed")
	ErrDuplicateConnection  = errors.New("duplicate connection id")
	ErrDuplicateGameSession = errors.New("duplicate game session id")
)

// ConnectionMeta is the query-string metadata a worker supplies when it connects.
type ConnectionMeta struct {
	ProcessID     string `json:"pID,omitempty"`
	SdkVersion    string `json:"sdkVersion,omitempty"`
	SdkLanguage   string `json:"sdkLanguage,omitempty"`
	Authorization string `json:"-"`
	ComputeID     string `json:"computeId,omitempty"`
	FleetID       string `json:"fleetId,omitempty"`
}

// Process is the coordinator's record of one live connection. Game
// servers become matchable once activated; other clients never do.
type Process struct {
	ConnID           uint64         `json:"connId"`
	Meta             ConnectionMeta `json:"meta"`
	Port             *int           `json:"port"`
	LogPaths         []string       `json:"logPaths"`
	Activated        bool           `json:"processActivated"`
	GameSessionID    string         `json:"gameSessionId,omitempty"`
	SessionActivated bool           `json:"gameSessionActivated"`
	ConnectedAt      time.Time      `json:"connectedAt"`

	sender Sender
}

// Free reports whether the process can accept a new game session.
func (p *Process) Free() bool {
	return p.Activated && p.GameSessionID == ""
}

func (p *Process) send(msg any) error {
	if p.sender == nil {
		return ErrDisconnected
	}
	return p.sender.Send(msg)
}

func (p *Process) snapshot() Process {
	out := *p
	out.sender = nil
	out.LogPaths = append([]string(nil), p.LogPaths...)
	if p.Port != nil {
		port := *p.Port
		out.Port = &port
	}
	return out
}

type PlayerSessionStatus string

const (
	PlayerSessionReserved  PlayerSessionStatus = "RESERVED"
	PlayerSessionActive    PlayerSessionStatus = "ACTIVE"
	PlayerSessionCompleted PlayerSessionStatus = "COMPLETED"
	PlayerSessionTimedOut  PlayerSessionStatus = "TIMEDOUT"
)

// Timestamps are epoch milliseconds.
type PlayerSession struct {
	PlayerSessionID string              `json:"PlayerSessionId"`
	PlayerID        string              `json:"PlayerId"`
	GameSessionID   string              `json:"GameSessionId"`
	FleetID         string              `json:"FleetId,omitempty"`
	IPAddress       string              `json:"IpAddress"`
	Port            int                 `json:"Port"`
	DNSName         string              `json:"DnsName"`
	Status          PlayerSessionStatus `json:"Status"`
	PlayerData      string              `json:"PlayerData"`
	CreationTime    int64               `json:"CreationTime"`
	TerminationTime int64               `json:"TerminationTime"`
}

type GameSession struct {
	GameSessionID             string            `json:"GameSessionId"`
	Name                      string            `json:"Name"`
	MaximumPlayerSessionCount int               `json:"MaximumPlayerSessionCount"`
	GameSessionData           string            `json:"GameSessionData"`
	MatchmakerData            string            `json:"MatchmakerData"`
	GameProperties            map[string]string `json:"GameProperties"`
	IPAddress                 string            `json:"IpAddress"`
	Port                      int               `json:"Port"`
	FleetID                   string            `json:"FleetId,omitempty"`
	ProcessConnID             uint64            `json:"ProcessConnId"`
	CreationTime              int64             `json:"CreationTime"`
	PlayerSessions            []PlayerSession   `json:"PlayerSessions"`
}

func (g *GameSession) snapshot() GameSession {
	out := *g
	out.PlayerSessions = append([]PlayerSession(nil), g.PlayerSessions...)
	if g.GameProperties != nil {
		out.GameProperties = make(map[string]string, len(g.GameProperties))
		for k, v := range g.GameProperties {
			out.GameProperties[k] = v
		}
	}
	return out
}

// Stats is a point-in-time count of fleet state.
type Stats struct {
	Connected      int
	Activated      int
	Free           int
	GameSessions   int
	PlayerSessions int
}
