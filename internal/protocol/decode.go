package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrInvalidMessage = errors.New("invalid message")
)

// ValidationError reports a frame that named a known action but failed
// to decode or validate.
type ValidationError struct {
	Action Action
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%v: %v", ErrInvalidMessage, e.Err)
	}
	return fmt.Sprintf("%v %s: %v", ErrInvalidMessage, e.Action, e.Err)
}

func (e *ValidationError) Unwrap() []error { return []error{ErrInvalidMessage, e.Err} }

var validate = validator.New(validator.WithRequiredStructEnabled())

var variants = map[Action]func() Request{
	ActionActivateServerProcess:   func() Request { return &ActivateServerProcess{} },
	ActionGetFleetRoleCredentials: func() Request { return &GetFleetRoleCredentials{} },
	ActionHeartbeatServerProcess:  func() Request { return &HeartbeatServerProcess{} },
	ActionCreateGameSession:       func() Request { return &CreateGameSession{} },
	ActionActivateGameSession:     func() Request { return &ActivateGameSession{} },
	ActionAcceptPlayerSession:     func() Request { return &AcceptPlayerSession{} },
	ActionDescribePlayerSessions:  func() Request { return &DescribePlayerSessions{} },
}

// Decode parses one text frame into its typed request. Frames naming an
// action outside the known set return ErrUnknownAction; every other
// failure is a *ValidationError.
func Decode(payload []byte) (Request, error) {
	var head struct {
		Action Action `json:"Action"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return nil, &ValidationError{Err: err}
	}

	newRequest, ok := variants[head.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, head.Action)
	}

	req := newRequest()
	if err := json.Unmarshal(payload, req); err != nil {
		return nil, &ValidationError{Action: head.Action, Err: err}
	}
	if err := validate.Struct(req); err != nil {
		return nil, &ValidationError{Action: head.Action, Err: err}
	}
	return req, nil
}
