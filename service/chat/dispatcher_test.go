package chat

import (
	"context"
	"errors"
	"testing"
)

type fakeHandler struct {
	route  RouteKey
	err    error
	calls  int
	lastEv Event
}

func (h *fakeHandler) Route() RouteKey { return h.route }

func (h *fakeHandler) Handle(_ context.Context, _ *Context, ev Event) error {
	h.calls++
	h.lastEv = ev
	return h.err
}

func TestDispatchRoutesToHandler(t *testing.T) {
	disp := NewDispatcher(&Context{})
	h := &fakeHandler{route: RoutePing}
	disp.Register(h)

	res := disp.Dispatch(context.Background(), Event{Route: RoutePing, ConnID: "conn-1"})
	if !res.Handled {
		t.Fatalf("known route not handled: %+v", res)
	}
	if res.Err != nil {
		t.Fatalf("unexpected err: %v", res.Err)
	}
	if h.calls != 1 {
		t.Errorf("handler called %d times, want 1", h.calls)
	}
	if h.lastEv.ConnID != "conn-1" {
		t.Errorf("handler saw conn %q, want conn-1", h.lastEv.ConnID)
	}
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	disp := NewDispatcher(&Context{})
	want := errors.New("boom")
	disp.Register(&fakeHandler{route: RouteSendMessage, err: want})

	res := disp.Dispatch(context.Background(), Event{Route: RouteSendMessage})
	if !res.Handled {
		t.Fatalf("known route not handled")
	}
	if !errors.Is(res.Err, want) {
		t.Errorf("got err %v, want %v", res.Err, want)
	}
}

func TestDispatchUnknownRoute(t *testing.T) {
	disp := NewDispatcher(&Context{})
	h := &fakeHandler{route: RoutePing}
	disp.Register(h)

	// 未知路由是显式 no-op：不报错，不调 handler
	res := disp.Dispatch(context.Background(), Event{Route: "bogus", ConnID: "conn-1"})
	if res.Handled {
		t.Errorf("unknown route marked handled")
	}
	if res.Err != nil {
		t.Errorf("unknown route produced error: %v", res.Err)
	}
	if res.Route != "bogus" {
		t.Errorf("route %q not preserved", res.Route)
	}
	if h.calls != 0 {
		t.Errorf("handler invoked for unknown route")
	}
}

func TestDispatchLastRegistrationWins(t *testing.T) {
	disp := NewDispatcher(&Context{})
	first := &fakeHandler{route: RoutePing}
	second := &fakeHandler{route: RoutePing}
	disp.Register(first)
	disp.Register(second)

	disp.Dispatch(context.Background(), Event{Route: RoutePing})
	if first.calls != 0 || second.calls != 1 {
		t.Errorf("calls first=%d second=%d, want 0/1", first.calls, second.calls)
	}
}
