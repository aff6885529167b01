package handlers

import (
	"context"

	"ChatRelay/service/chat"
	errs "ChatRelay/tools/errs"
)

// ping：存活探测，原连接回一个 pong

type PingHandler struct{}

func NewPingHandler() chat.Handler          { return &PingHandler{} }
func (h *PingHandler) Route() chat.RouteKey { return chat.RoutePing }

func (h *PingHandler) Handle(ctx context.Context, cx *chat.Context, ev chat.Event) error {
	if err := cx.Pusher.Push(ctx, ev.ConnID, []byte("pong")); err != nil {
		return errs.WrapMsg(err, "ping: push", "connection_id", ev.ConnID)
	}
	return nil
}
