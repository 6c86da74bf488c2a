//go:build integration

package events

import (
	"context"
	"testing"
	"time"

	"github.com/flawiddsouza/GameLiftLocal/internal/contracts"
	"github.com/flawiddsouza/GameLiftLocal/internal/itest"
	"github.com/rs/zerolog"
)

func TestNotifierPublishesToNATS(t *testing.T) {
	h := itest.Start(t)
	nc := itest.NATS(t, h.NATSURL)

	sub, err := nc.SubscribeSync(contracts.SubjectGameSessionActivated)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()
	if err := nc.Flush(); err != nil {
		t.Fatal(err)
	}

	n := NewNotifier(zerolog.Nop(), 4, NewNATSSink(nc))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	n.Emit(contracts.EventGameSessionActivated, "req-7", 3, contracts.GameSessionActivatedV1{GameSessionID: "gs-1"})

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("next msg: %v", err)
	}
	if msg.Header.Get("correlation_id") != "req-7" {
		t.Fatalf("unexpected headers: %v", msg.Header)
	}
	env, err := contracts.UnmarshalEnvelope(msg.Data)
	if err != nil || env.Type != contracts.EventGameSessionActivated || *env.ConnID != 3 {
		t.Fatalf("unexpected envelope %+v: %v", env, err)
	}
}
