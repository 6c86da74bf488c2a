package protocol

// Action names the message kind carried in every frame's "Action" field.
type Action string

const (
	ActionActivateServerProcess   Action = "ActivateServerProcess"
	ActionGetFleetRoleCredentials Action = "GetFleetRoleCredentials"
	ActionHeartbeatServerProcess  Action = "HeartbeatServerProcess"
	ActionCreateGameSession       Action = "CreateGameSession"
	ActionActivateGameSession     Action = "ActivateGameSession"
	ActionAcceptPlayerSession     Action = "AcceptPlayerSession"
	ActionDescribePlayerSessions  Action = "DescribePlayerSessions"
)

// Request is one decoded inbound message. The set of implementations is
// closed: one struct per Action below.
type Request interface {
	Action() Action
	ID() string
}

// Identifiers must be non-empty. Free-text fields are pointers so that
// presence is enforced while an empty string stays legal.

type ActivateServerProcess struct {
	RequestID   string   `json:"RequestId"`
	SdkVersion  *string  `json:"SdkVersion" validate:"required"`
	SdkLanguage *string  `json:"SdkLanguage" validate:"required"`
	Port        *int     `json:"Port" validate:"required,gte=0,lte=65535"`
	LogPaths    []string `json:"LogPaths" validate:"required"`
}

type GetFleetRoleCredentials struct {
	RequestID       string  `json:"RequestId" validate:"required"`
	RoleArn         *string `json:"RoleArn" validate:"required"`
	RoleSessionName *string `json:"RoleSessionName" validate:"required"`
}

type HeartbeatServerProcess struct {
	RequestID    string `json:"RequestId" validate:"required"`
	HealthStatus *bool  `json:"HealthStatus" validate:"required"`
}

type PlayerSessionRequest struct {
	PlayerID   string  `json:"playerId" validate:"required"`
	PlayerData *string `json:"playerData" validate:"required"`
}

type CreateGameSession struct {
	RequestID      string                 `json:"RequestId" validate:"required"`
	GameProperties map[string]string      `json:"GameProperties"`
	PlayerSessions []PlayerSessionRequest `json:"PlayerSessions" validate:"required,dive"`

	MaximumPlayerSessionCount *int    `json:"MaximumPlayerSessionCount,omitempty" validate:"omitempty,gte=1"`
	GameSessionName           *string `json:"GameSessionName,omitempty"`
	GameSessionData           *string `json:"GameSessionData,omitempty"`
	MatchmakerData            *string `json:"MatchmakerData,omitempty"`
}

type ActivateGameSession struct {
	RequestID     string `json:"RequestId"`
	GameSessionID string `json:"GameSessionId" validate:"required"`
}

type AcceptPlayerSession struct {
	RequestID       string `json:"RequestId"`
	GameSessionID   string `json:"GameSessionId" validate:"required"`
	PlayerSessionID string `json:"PlayerSessionId" validate:"required"`
}

// DescribePlayerSessions selects by exactly one of GameSessionID or
// PlayerSessionID. The remaining filters are accepted and ignored.
type DescribePlayerSessions struct {
	RequestID                 string `json:"RequestId" validate:"required"`
	GameSessionID             string `json:"GameSessionId" validate:"required_without=PlayerSessionID,excluded_with=PlayerSessionID"`
	PlayerSessionID           string `json:"PlayerSessionId"`
	PlayerID                  string `json:"PlayerId"`
	PlayerSessionStatusFilter string `json:"PlayerSessionStatusFilter"`
	NextToken                 string `json:"NextToken"`
	Limit                     *int   `json:"Limit" validate:"omitempty,gte=0"`
}

func (r *ActivateServerProcess) Action() Action   { return ActionActivateServerProcess }
func (r *GetFleetRoleCredentials) Action() Action { return ActionGetFleetRoleCredentials }
func (r *HeartbeatServerProcess) Action() Action  { return ActionHeartbeatServerProcess }
func (r *CreateGameSession) Action() Action       { return ActionCreateGameSession }
func (r *ActivateGameSession) Action() Action     { return ActionActivateGameSession }
func (r *AcceptPlayerSession) Action() Action     { return ActionAcceptPlayerSession }
func (r *DescribePlayerSessions) Action() Action  { return ActionDescribePlayerSessions }

func (r *ActivateServerProcess) ID() string   { return r.RequestID }
func (r *GetFleetRoleCredentials) ID() string { return r.RequestID }
func (r *HeartbeatServerProcess) ID() string  { return r.RequestID }
func (r *CreateGameSession) ID() string       { return r.RequestID }
func (r *ActivateGameSession) ID() string     { return r.RequestID }
func (r *AcceptPlayerSession) ID() string     { return r.RequestID }
func (r *DescribePlayerSessions) ID() string  { return r.RequestID }
