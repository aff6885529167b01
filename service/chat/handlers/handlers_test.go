package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"ChatRelay/global/config"
	chatsvc "ChatRelay/module/chat/service"
	usersvc "ChatRelay/module/user/service"
	"ChatRelay/service/chat"
	"ChatRelay/service/storage"
	errs "ChatRelay/tools/errs"
)

type recordingPusher struct {
	mu     sync.Mutex
	byConn map[string][]string
}

func (p *recordingPusher) Push(_ context.Context, connID string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byConn[connID] = append(p.byConn[connID], string(payload))
	return nil
}

func (p *recordingPusher) sentTo(connID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.byConn[connID]...)
}

func newTestContext() (*chat.Context, *recordingPusher) {
	cfg := config.Config{
		ActiveUsersTable:       "active_chat_users",
		ActiveConnectionsTable: "active_connection_ids",
		ChatMessagesTable:      "chat_messages",
		UserExpiration:         "1 week",
		MessageExpiration:      "1 week",
	}
	store := storage.NewMemoryGateway()
	registry := usersvc.NewRegistry(cfg, store)
	pusher := &recordingPusher{byConn: make(map[string][]string)}
	return &chat.Context{
		Cfg:      cfg,
		Registry: registry,
		Relay:    chatsvc.NewRelay(cfg, store, registry, pusher),
		Pusher:   pusher,
	}, pusher
}

func handle(t *testing.T, h chat.Handler, cx *chat.Context, connID, body string) error {
	t.Helper()
	ev := chat.Event{Route: h.Route(), ConnID: connID}
	if body != "" {
		ev.Body = json.RawMessage(body)
	}
	return h.Handle(context.Background(), cx, ev)
}

func TestSetNameRegistersAndBroadcasts(t *testing.T) {
	cx, pusher := newTestContext()

	if err := handle(t, NewSetNameHandler(), cx, "conn-1", `{"username":"alice"}`); err != nil {
		t.Fatalf("setName: %v", err)
	}

	conn, err := cx.Registry.LookupByConnection(context.Background(), "conn-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if conn.UserID != "alice" {
		t.Errorf("registered %q, want alice", conn.UserID)
	}

	got := pusher.sentTo("conn-1")
	if len(got) != 1 || got[0] != "alice has joined the chat." {
		t.Errorf("join notice %v, want [alice has joined the chat.]", got)
	}
}

func TestSetNameValidation(t *testing.T) {
	cx, _ := newTestContext()

	for _, body := range []string{``, `not json`, `{}`, `{"username":"   "}`} {
		err := handle(t, NewSetNameHandler(), cx, "conn-1", body)
		if !errors.Is(err, errs.ErrInvalidInput) {
			t.Errorf("setName(%q): got %v, want ErrInvalidInput", body, err)
		}
	}
}

func TestSetNameTakenName(t *testing.T) {
	cx, _ := newTestContext()

	if err := handle(t, NewSetNameHandler(), cx, "conn-1", `{"username":"alice"}`); err != nil {
		t.Fatalf("first setName: %v", err)
	}
	err := handle(t, NewSetNameHandler(), cx, "conn-2", `{"username":"alice"}`)
	if !errors.Is(err, errs.ErrConditionFailed) {
		t.Errorf("got %v, want ErrConditionFailed", err)
	}
}

func TestSendMessageDelivers(t *testing.T) {
	cx, pusher := newTestContext()
	mustSetName(t, cx, "conn-1", "alice")
	mustSetName(t, cx, "conn-2", "bob")

	if err := handle(t, NewSendMessageHandler(), cx, "conn-1", `{"to":"bob","message":"hi"}`); err != nil {
		t.Fatalf("sendMessage: %v", err)
	}

	got := pusher.sentTo("conn-2")
	found := false
	for _, payload := range got {
		if payload == "[alice]: hi" {
			found = true
		}
	}
	if !found {
		t.Errorf("bob received %v, want to contain %q", got, "[alice]: hi")
	}
}

func TestSendMessageValidation(t *testing.T) {
	cx, _ := newTestContext()
	mustSetName(t, cx, "conn-1", "alice")

	for _, body := range []string{`not json`, `{"to":"","message":"hi"}`, `{"to":"bob","message":""}`} {
		err := handle(t, NewSendMessageHandler(), cx, "conn-1", body)
		if !errors.Is(err, errs.ErrInvalidInput) {
			t.Errorf("sendMessage(%q): got %v, want ErrInvalidInput", body, err)
		}
	}
}

func TestDisconnectUnregistersAndNotifies(t *testing.T) {
	cx, pusher := newTestContext()
	mustSetName(t, cx, "conn-1", "alice")
	mustSetName(t, cx, "conn-2", "bob")

	if err := handle(t, NewDisconnectHandler(), cx, "conn-1", ""); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	if _, err := cx.Registry.LookupByUser(context.Background(), "alice"); !errors.Is(err, errs.ErrRecordNotFound) {
		t.Errorf("alice still registered: %v", err)
	}

	got := pusher.sentTo("conn-2")
	found := false
	for _, payload := range got {
		if payload == "alice has left the chat." {
			found = true
		}
	}
	if !found {
		t.Errorf("bob received %v, want to contain leave notice", got)
	}
}

func TestDisconnectUnknownConnectionFails(t *testing.T) {
	cx, _ := newTestContext()

	err := handle(t, NewDisconnectHandler(), cx, "conn-404", "")
	if !errors.Is(err, errs.ErrRecordNotFound) {
		t.Errorf("got %v, want ErrRecordNotFound", err)
	}
}

func TestListUsersPushesRoster(t *testing.T) {
	cx, pusher := newTestContext()
	mustSetName(t, cx, "conn-1", "alice")
	mustSetName(t, cx, "conn-2", "bob")

	if err := handle(t, NewListUsersHandler(), cx, "conn-1", ""); err != nil {
		t.Fatalf("listUsers: %v", err)
	}

	got := pusher.sentTo("conn-1")
	if len(got) == 0 {
		t.Fatalf("no roster pushed")
	}
	roster := got[len(got)-1]
	var names []string
	if err := json.Unmarshal([]byte(roster), &names); err != nil {
		t.Fatalf("roster not a JSON array: %q", roster)
	}
	if len(names) != 2 || !strings.Contains(roster, "alice") || !strings.Contains(roster, "bob") {
		t.Errorf("roster %v, want alice and bob", names)
	}
}

func TestPing(t *testing.T) {
	cx, pusher := newTestContext()

	if err := handle(t, NewPingHandler(), cx, "conn-1", ""); err != nil {
		t.Fatalf("ping: %v", err)
	}
	got := pusher.sentTo("conn-1")
	if len(got) != 1 || got[0] != "pong" {
		t.Errorf("got %v, want [pong]", got)
	}
}

func TestReservedRoutesUnimplemented(t *testing.T) {
	cx, _ := newTestContext()

	err := handle(t, NewViewMessagesHandler(), cx, "conn-1", `{"username":"bob"}`)
	if !errors.Is(err, errs.ErrUnimplemented) {
		t.Errorf("viewMessages: got %v, want ErrUnimplemented", err)
	}
	err = handle(t, NewDeleteMessageHandler(), cx, "conn-1", `{"messageId":"msg-1"}`)
	if !errors.Is(err, errs.ErrUnimplemented) {
		t.Errorf("deleteMessage: got %v, want ErrUnimplemented", err)
	}
}

func mustSetName(t *testing.T, cx *chat.Context, connID, username string) {
	t.Helper()
	if err := handle(t, NewSetNameHandler(), cx, connID, `{"username":"`+username+`"}`); err != nil {
		t.Fatalf("setName %s/%s: %v", username, connID, err)
	}
}
