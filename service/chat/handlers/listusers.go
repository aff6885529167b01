package handlers

import (
	"context"
	"encoding/json"

	"ChatRelay/service/chat"
	errs "ChatRelay/tools/errs"
)

// listUsers：把当前在线用户名列表推回给发起查询的连接

type ListUsersHandler struct{}

func NewListUsersHandler() chat.Handler          { return &ListUsersHandler{} }
func (h *ListUsersHandler) Route() chat.RouteKey { return chat.RouteListUsers }

func (h *ListUsersHandler) Handle(ctx context.Context, cx *chat.Context, ev chat.Event) error {
	userIDs, err := cx.Registry.ListUserIDs(ctx)
	if err != nil {
		return errs.WrapMsg(err, "listUsers")
	}

	payload, err := json.Marshal(userIDs)
	if err != nil {
		return errs.ErrServerInternal.WrapMsg("listUsers: marshal", "err", err)
	}

	if err := cx.Pusher.Push(ctx, ev.ConnID, payload); err != nil {
		return errs.WrapMsg(err, "listUsers: push", "connection_id", ev.ConnID)
	}
	return nil
}
