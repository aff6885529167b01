package chat

import (
	"errors"
	"testing"

	errs "ChatRelay/tools/errs"
)

func TestParseEventFrame(t *testing.T) {
	ev, err := ParseEventFrame([]byte(`{"route":"sendMessage","data":{"to":"bob","message":"hi"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Route != RouteSendMessage {
		t.Errorf("route %q, want sendMessage", ev.Route)
	}
	if string(ev.Body) != `{"to":"bob","message":"hi"}` {
		t.Errorf("body not passed through verbatim: %s", ev.Body)
	}
}

func TestParseEventFrameNoData(t *testing.T) {
	ev, err := ParseEventFrame([]byte(`{"route":"ping"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Route != RoutePing {
		t.Errorf("route %q, want ping", ev.Route)
	}
	if len(ev.Body) != 0 {
		t.Errorf("body %q, want empty", ev.Body)
	}
}

func TestParseEventFrameInvalid(t *testing.T) {
	cases := []string{
		``,
		`not json`,
		`{"data":{"to":"bob"}}`,
		`{"route":""}`,
		`[1,2,3]`,
	}
	for _, in := range cases {
		if _, err := ParseEventFrame([]byte(in)); !errors.Is(err, errs.ErrInvalidInput) {
			t.Errorf("ParseEventFrame(%q): got %v, want ErrInvalidInput", in, err)
		}
	}
}
