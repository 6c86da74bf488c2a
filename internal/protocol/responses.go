package protocol

import "net/http"

// Response is the reply envelope sent back on the originating connection.
type Response struct {
	Action     Action `json:"Action"`
	RequestID  string `json:"RequestId"`
	StatusCode int    `json:"StatusCode"`
	Message    string `json:"Message,omitempty"`
	Data       any    `json:"Data,omitempty"`
}

func OK(action Action, requestID string, data any) Response {
	return Response{Action: action, RequestID: requestID, StatusCode: http.StatusOK, Data: data}
}

func Fail(action Action, requestID string, status int, message string) Response {
	return Response{Action: action, RequestID: requestID, StatusCode: status, Message: message}
}

const NoFreeProcessMessage = "No free game process found"

// FleetRoleCredentials is the placeholder credential set handed to workers.
type FleetRoleCredentials struct {
	AssumedRoleUserArn string `json:"AssumedRoleUserArn"`
	AssumedRoleID      string `json:"AssumedRoleId"`
	AccessKeyID        string `json:"AccessKeyId"`
	SecretAccessKey    string `json:"SecretAccessKey"`
	SessionToken       string `json:"SessionToken"`
	Expiration         int64  `json:"Expiration"`
}

func PlaceholderCredentials() FleetRoleCredentials {
	const dummy = "dummy"
	return FleetRoleCredentials{
		AssumedRoleUserArn: dummy,
		AssumedRoleID:      dummy,
		AccessKeyID:        dummy,
		SecretAccessKey:    dummy,
		SessionToken:       dummy,
	}
}

// CreateGameSessionPush is sent to the worker a new game session was bound to.
type CreateGameSessionPush struct {
	Action                    Action            `json:"Action"`
	MaximumPlayerSessionCount int               `json:"MaximumPlayerSessionCount"`
	Port                      int               `json:"Port"`
	IPAddress                 string            `json:"IpAddress"`
	GameSessionID             string            `json:"GameSessionId"`
	GameSessionName           string            `json:"GameSessionName"`
	GameSessionData           string            `json:"GameSessionData"`
	MatchmakerData            string            `json:"MatchmakerData"`
	GameProperties            map[string]string `json:"GameProperties"`
}
