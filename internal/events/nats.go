package events

import (
	"context"

	"github.com/flawiddsouza/GameLiftLocal/internal/contracts"
	"github.com/nats-io/nats.go"
)

type MsgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSSink publishes each event on the subject mapped from its type.
type NATSSink struct {
	pub MsgPublisher
}

func NewNATSSink(pub MsgPublisher) *NATSSink {
	return &NATSSink{pub: pub}
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Deliver(_ context.Context, evt Event) error {
	subject, err := contracts.SubjectForType(evt.Type)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(subject)
	msg.Data = evt.Raw
	msg.Header.Set("correlation_id", evt.CorrelationID)
	msg.Header.Set("content-type", "application/json")
	return s.pub.PublishMsg(msg)
}
