package fleet

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/flawiddsouza/GameLiftLocal/internal/contracts"
	"github.com/flawiddsouza/GameLiftLocal/internal/protocol"
	"github.com/rs/zerolog"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []any
	err  error
}

func (f *fakeSender) Send(msg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeSender) sent() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.msgs...)
}

func (f *fakeSender) last(t *testing.T) any {
	t.Helper()
	msgs := f.sent()
	if len(msgs) == 0 {
		t.Fatal("expected a message")
	}
	return msgs[len(msgs)-1]
}

type recordedEvent struct {
	typ     contracts.EventType
	connID  uint64
	payload any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEmitter) Emit(eventType contracts.EventType, _ string, connID uint64, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{typ: eventType, connID: connID, payload: payload})
}

func (f *fakeEmitter) types() []contracts.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]contracts.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.typ)
	}
	return out
}

func fixedIDs(ids ...string) func() string {
	i := 0
	return func() string {
		if i >= len(ids) {
			return "overflow-id"
		}
		id := ids[i]
		i++
		return id
	}
}

var testNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestCoordinator(ids ...string) (*Coordinator, *fakeEmitter) {
	emitter := &fakeEmitter{}
	c := NewCoordinator(zerolog.Nop(), Options{IPAddress: "localhost", Events: emitter})
	c.now = func() time.Time { return testNow }
	c.newID = fixedIDs(ids...)
	return c, emitter
}

func dispatch(t *testing.T, c *Coordinator, connID uint64, msg map[string]any) {
	t.Helper()
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	c.Dispatch(connID, raw)
}

func activate(t *testing.T, c *Coordinator, connID uint64, port int) {
	t.Helper()
	dispatch(t, c, connID, map[string]any{
		"Action": "ActivateServerProcess", "RequestId": "act", "SdkVersion": "5.1.0", "SdkLanguage": "Go",
		"Port": port, "LogPaths": []string{"/tmp/server.log"},
	})
}

func createRequest(requestID string, players ...string) map[string]any {
	sessions := make([]map[string]any, 0, len(players))
	for _, p := range players {
		sessions = append(sessions, map[string]any{"playerId": p, "playerData": "data-" + p})
	}
	return map[string]any{
		"Action": "CreateGameSession", "RequestId": requestID,
		"GameProperties": map[string]string{"mode": "ffa"}, "PlayerSessions": sessions,
	}
}

func asResponse(t *testing.T, msg any) protocol.Response {
	t.Helper()
	resp, ok := msg.(protocol.Response)
	if !ok {
		t.Fatalf("expected protocol.Response, got %T", msg)
	}
	return resp
}

func TestHeartbeatAndCredentials(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator()
	worker := &fakeSender{}
	id := c.Connect(ConnectionMeta{ProcessID: "1"}, worker)

	dispatch(t, c, id, map[string]any{"Action": "HeartbeatServerProcess", "RequestId": "hb-1", "HealthStatus": true})
	resp := asResponse(t, worker.last(t))
	if resp.Action != protocol.ActionHeartbeatServerProcess || resp.RequestID != "hb-1" || resp.StatusCode != http.StatusOK || resp.Data != nil {
		t.Fatalf("unexpected heartbeat response: %+v", resp)
	}
	raw, _ := json.Marshal(resp)
	if string(raw) != `{"Action":"HeartbeatServerProcess","RequestId":"hb-1","StatusCode":200}` {
		t.Fatalf("unexpected heartbeat wire format: %s", raw)
	}

	dispatch(t, c, id, map[string]any{"Action": "GetFleetRoleCredentials", "RequestId": "cr-1", "RoleArn": "arn", "RoleSessionName": "s"})
	resp = asResponse(t, worker.last(t))
	creds, ok := resp.Data.(protocol.FleetRoleCredentials)
	if !ok || creds.SessionToken != "dummy" || resp.RequestID != "cr-1" {
		t.Fatalf("unexpected credentials response: %+v", resp)
	}
}

func TestCreateGameSessionBindsFirstFreeProcess(t *testing.T) {
	t.Parallel()
	c, emitter := newTestCoordinator("gs-1")
	worker := &fakeSender{}
	client := &fakeSender{}
	workerID := c.Connect(ConnectionMeta{ProcessID: "1", FleetID: "fleet-local"}, worker)
	clientID := c.Connect(ConnectionMeta{}, client)
	activate(t, c, workerID, 7777)

	dispatch(t, c, clientID, createRequest("req-1", "player-1", "player-2"))

	push, ok := worker.last(t).(protocol.CreateGameSessionPush)
	if !ok {
		t.Fatalf("expected push to worker, got %T", worker.last(t))
	}
	if push.GameSessionID != "gs-1" || push.Port != 7777 || push.IPAddress != "localhost" || push.MaximumPlayerSessionCount != 4 {
		t.Fatalf("unexpected push: %+v", push)
	}
	if push.GameSessionName != "game_session_name" || push.GameSessionData != "game_session_data" || push.MatchmakerData != "{}" || push.GameProperties["mode"] != "ffa" {
		t.Fatalf("unexpected push defaults: %+v", push)
	}

	resp := asResponse(t, client.last(t))
	if resp.StatusCode != http.StatusOK || resp.RequestID != "req-1" {
		t.Fatalf("unexpected reply: %+v", resp)
	}
	result, ok := resp.Data.(CreateGameSessionResult)
	if !ok || result.GameProcess.ConnID != workerID || result.GameSession.GameSessionID != "gs-1" {
		t.Fatalf("unexpected reply data: %+v", resp.Data)
	}

	gs, ok := c.GameSession("gs-1")
	if !ok {
		t.Fatal("expected stored game session")
	}
	if len(gs.PlayerSessions) != 2 {
		t.Fatalf("expected 2 player sessions, got %d", len(gs.PlayerSessions))
	}
	ps := gs.PlayerSessions[0]
	if ps.PlayerSessionID != "player-1" || ps.Status != PlayerSessionReserved || ps.Port != 7777 || ps.DNSName != "localhost" || ps.PlayerData != "data-player-1" || ps.FleetID != "fleet-local" {
		t.Fatalf("unexpected player session: %+v", ps)
	}
	if ps.CreationTime != testNow.UnixMilli() {
		t.Fatalf("unexpected creation time %d", ps.CreationTime)
	}

	procs := c.Processes()
	if procs[0].GameSessionID != "gs-1" || procs[1].GameSessionID != "" {
		t.Fatalf("unexpected bindings: %+v", procs)
	}
	types := emitter.types()
	if types[len(types)-1] != contracts.EventGameSessionCreated {
		t.Fatalf("expected game_session.created last, got %v", types)
	}
}

func TestCreateGameSessionHonoursOptionalFields(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator("gs-1")
	worker := &fakeSender{}
	id := c.Connect(ConnectionMeta{}, worker)
	activate(t, c, id, 9000)

	req := createRequest("req-1", "p1")
	req["MaximumPlayerSessionCount"] = 10
	req["GameSessionName"] = "arena"
	req["MatchmakerData"] = `{"teams":[]}`
	dispatch(t, c, id, req)

	gs, ok := c.GameSession("gs-1")
	if !ok || gs.MaximumPlayerSessionCount != 10 || gs.Name != "arena" || gs.MatchmakerData != `{"teams":[]}` || gs.GameSessionData != "game_session_data" {
		t.Fatalf("unexpected session: %+v", gs)
	}
}

func TestCreateGameSessionWithoutFreeProcess(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		setup func(t *testing.T, c *Coordinator) uint64
	}{
		{"empty registry", func(t *testing.T, c *Coordinator) uint64 {
			return c.Connect(ConnectionMeta{}, &fakeSender{})
		}},
		{"connected but not activated", func(t *testing.T, c *Coordinator) uint64 {
			c.Connect(ConnectionMeta{ProcessID: "1"}, &fakeSender{})
			return c.Connect(ConnectionMeta{}, &fakeSender{})
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := newTestCoordinator("gs-1")
			client := &fakeSender{}
			_ = tt.setup(t, c)
			clientID := c.Connect(ConnectionMeta{}, client)
			dispatch(t, c, clientID, createRequest("req-9", "p1"))

			resp := asResponse(t, client.last(t))
			if resp.StatusCode != http.StatusBadRequest || resp.Message != "No free game process found" || resp.RequestID != "req-9" {
				t.Fatalf("unexpected failure reply: %+v", resp)
			}
			if len(c.GameSessions()) != 0 {
				t.Fatal("no game session may be created on failure")
			}
		})
	}
}

func TestMatchingFollowsInsertionOrderAndNeverDoubleBinds(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator("gs-1", "gs-2")
	w1, w2 := &fakeSender{}, &fakeSender{}
	id1 := c.Connect(ConnectionMeta{ProcessID: "1"}, w1)
	id2 := c.Connect(ConnectionMeta{ProcessID: "2"}, w2)
	activate(t, c, id2, 2000)
	activate(t, c, id1, 1000)
	client := &fakeSender{}
	clientID := c.Connect(ConnectionMeta{}, client)

	dispatch(t, c, clientID, createRequest("a", "p1"))
	dispatch(t, c, clientID, createRequest("b", "p2"))
	dispatch(t, c, clientID, createRequest("c", "p3"))

	if push := w1.last(t).(protocol.CreateGameSessionPush); push.GameSessionID != "gs-1" || push.Port != 1000 {
		t.Fatalf("first request should bind the first registered process: %+v", push)
	}
	if push := w2.last(t).(protocol.CreateGameSessionPush); push.GameSessionID != "gs-2" {
		t.Fatalf("second request should bind the second process: %+v", push)
	}
	replies := client.sent()
	if len(replies) != 3 || asResponse(t, replies[2]).StatusCode != http.StatusBadRequest {
		t.Fatalf("third request should fail, got %+v", replies)
	}
	if st := c.Stats(); st.Free != 0 || st.GameSessions != 2 || st.PlayerSessions != 2 || st.Activated != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestInvalidAndUnknownMessagesAreDropped(t *testing.T) {
	t.Parallel()
	c, emitter := newTestCoordinator()
	worker := &fakeSender{}
	id := c.Connect(ConnectionMeta{}, worker)

	c.Dispatch(id, []byte(`not json`))
	c.Dispatch(id, []byte(`{"Action":"ActivateServerProcess","SdkVersion":"5","SdkLanguage":"Go","Port":"abc","LogPaths":[]}`))
	c.Dispatch(id, []byte(`{"Action":"TerminateGameSession","RequestId":"x"}`))
	c.Dispatch(id, []byte(`{"Action":"HeartbeatServerProcess","RequestId":"x"}`))

	if len(worker.sent()) != 0 {
		t.Fatalf("expected no responses, got %v", worker.sent())
	}
	if c.Processes()[0].Activated {
		t.Fatal("invalid activation must not change state")
	}
	if got := emitter.types(); len(got) != 1 || got[0] != contracts.EventProcessConnected {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestRepeatedActivationOverwrites(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator()
	id := c.Connect(ConnectionMeta{}, &fakeSender{})
	activate(t, c, id, 1000)
	activate(t, c, id, 2000)

	procs := c.Processes()
	if len(procs) != 1 || *procs[0].Port != 2000 || !procs[0].Activated {
		t.Fatalf("unexpected registry after re-activation: %+v", procs)
	}
	if procs[0].Meta.SdkLanguage != "Go" {
		t.Fatalf("sdk language should be filled from activation: %+v", procs[0].Meta)
	}
}

func TestActivateGameSessionMarksProcess(t *testing.T) {
	t.Parallel()
	c, emitter := newTestCoordinator("gs-1")
	worker := &fakeSender{}
	id := c.Connect(ConnectionMeta{}, worker)
	activate(t, c, id, 7777)
	dispatch(t, c, id, createRequest("r", "p1"))
	dispatch(t, c, id, map[string]any{"Action": "ActivateGameSession", "GameSessionId": "gs-1"})
	dispatch(t, c, id, map[string]any{"Action": "AcceptPlayerSession", "GameSessionId": "gs-1", "PlayerSessionId": "p1"})

	p := c.Processes()[0]
	if !p.SessionActivated || p.GameSessionID != "gs-1" {
		t.Fatalf("unexpected process state: %+v", p)
	}
	if got := len(worker.sent()); got != 2 {
		t.Fatalf("expected push + reply only, got %d messages", got)
	}
	types := emitter.types()
	if types[len(types)-1] != contracts.EventGameSessionActivated {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestDescribePlayerSessions(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator("gs-1", "gs-2")
	w1, w2 := &fakeSender{}, &fakeSender{}
	id1 := c.Connect(ConnectionMeta{}, w1)
	id2 := c.Connect(ConnectionMeta{}, w2)
	activate(t, c, id1, 1000)
	activate(t, c, id2, 2000)
	dispatch(t, c, id1, createRequest("r1", "alice", "bob"))
	dispatch(t, c, id1, createRequest("r2", "carol"))

	tests := []struct {
		name    string
		filter  map[string]any
		wantIDs []string
	}{
		{"by game session", map[string]any{"GameSessionId": "gs-1", "PlayerSessionId": ""}, []string{"alice", "bob"}},
		{"by player session", map[string]any{"PlayerSessionId": "carol"}, []string{"carol"}},
		{"unknown game session", map[string]any{"GameSessionId": "nope"}, []string{}},
		{"unknown player session", map[string]any{"PlayerSessionId": "nope"}, []string{}},
	}
	for _, tt := range tests {
		msg := map[string]any{"Action": "DescribePlayerSessions", "RequestId": tt.name}
		for k, v := range tt.filter {
			msg[k] = v
		}
		dispatch(t, c, id2, msg)
		resp := asResponse(t, w2.last(t))
		if resp.StatusCode != http.StatusOK || resp.RequestID != tt.name {
			t.Fatalf("%s: unexpected response %+v", tt.name, resp)
		}
		data := resp.Data.(DescribePlayerSessionsResult)
		if data.NextToken != nil || data.PlayerSessions == nil {
			t.Fatalf("%s: unexpected data %+v", tt.name, data)
		}
		got := make([]string, 0, len(data.PlayerSessions))
		for _, ps := range data.PlayerSessions {
			got = append(got, ps.PlayerSessionID)
		}
		if fmt.Sprint(got) != fmt.Sprint(tt.wantIDs) {
			t.Fatalf("%s: got %v want %v", tt.name, got, tt.wantIDs)
		}
	}

	before := len(w2.sent())
	dispatch(t, c, id2, map[string]any{"Action": "DescribePlayerSessions", "RequestId": "both", "GameSessionId": "gs-1", "PlayerSessionId": "alice"})
	if len(w2.sent()) != before {
		t.Fatal("ambiguous lookup must be dropped without a response")
	}

	raw, _ := json.Marshal(asResponse(t, w2.last(t)))
	var wire map[string]any
	_ = json.Unmarshal(raw, &wire)
	data := wire["Data"].(map[string]any)
	if _, ok := data["NextToken"]; !ok || data["NextToken"] != nil {
		t.Fatalf("NextToken must serialize as null: %s", raw)
	}
}

func TestDisconnectRemovesProcessAndKeepsSession(t *testing.T) {
	t.Parallel()
	c, emitter := newTestCoordinator("gs-1")
	worker := &fakeSender{}
	client := &fakeSender{}
	workerID := c.Connect(ConnectionMeta{}, worker)
	clientID := c.Connect(ConnectionMeta{}, client)
	activate(t, c, workerID, 7777)
	dispatch(t, c, clientID, createRequest("r1", "p1"))

	c.Disconnect(workerID)
	c.Disconnect(workerID)

	if len(c.Processes()) != 1 {
		t.Fatalf("expected only the client to remain, got %+v", c.Processes())
	}
	if _, ok := c.GameSession("gs-1"); !ok {
		t.Fatal("game session should outlive its process")
	}
	sentBefore := len(worker.sent())
	dispatch(t, c, workerID, map[string]any{"Action": "HeartbeatServerProcess", "RequestId": "late", "HealthStatus": true})
	if len(worker.sent()) != sentBefore {
		t.Fatal("frames from a removed connection must be ignored")
	}

	dispatch(t, c, clientID, createRequest("r2", "p2"))
	if resp := asResponse(t, client.last(t)); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("disconnected process must not be matched: %+v", resp)
	}
	found := false
	for _, e := range emitter.events {
		if e.typ == contracts.EventProcessDisconnected {
			found = e.payload.(contracts.ProcessDisconnectedV1).GameSessionID == "gs-1" && e.connID == workerID
		}
	}
	if !found {
		t.Fatal("expected process.disconnected event carrying the orphaned session")
	}
}

func TestSendFailureDoesNotPanic(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator()
	id := c.Connect(ConnectionMeta{}, &fakeSender{err: ErrDisconnected})
	dispatch(t, c, id, map[string]any{"Action": "HeartbeatServerProcess", "RequestId": "hb", "HealthStatus": true})
}

func TestConcurrentCreateRequestsBindEachProcessOnce(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(zerolog.Nop(), Options{})
	const workers = 5
	const clients = 20
	for i := 0; i < workers; i++ {
		id := c.Connect(ConnectionMeta{}, &fakeSender{})
		activate(t, c, id, 7000+i)
	}
	senders := make([]*fakeSender, clients)
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		senders[i] = &fakeSender{}
		id := c.Connect(ConnectionMeta{}, senders[i])
		wg.Add(1)
		go func(id uint64, n int) {
			defer wg.Done()
			raw, _ := json.Marshal(createRequest(fmt.Sprintf("req-%d", n), fmt.Sprintf("p-%d", n)))
			c.Dispatch(id, raw)
		}(id, i)
	}
	wg.Wait()

	ok := 0
	for _, s := range senders {
		if asResponse(t, s.last(t)).StatusCode == http.StatusOK {
			ok++
		}
	}
	if ok != workers {
		t.Fatalf("expected %d successful requests, got %d", workers, ok)
	}
	bound := map[string]bool{}
	for _, p := range c.Processes() {
		if p.GameSessionID == "" {
			continue
		}
		if bound[p.GameSessionID] {
			t.Fatalf("game session %s bound twice", p.GameSessionID)
		}
		bound[p.GameSessionID] = true
	}
	if len(bound) != workers || len(c.GameSessions()) != workers {
		t.Fatalf("expected %d bindings, got %d (%d sessions)", workers, len(bound), len(c.GameSessions()))
	}
}
