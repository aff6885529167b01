package handlers

import (
	"context"
	"fmt"

	"ChatRelay/logger"
	"ChatRelay/service/chat"
	errs "ChatRelay/tools/errs"
)

// $connect：连接建立即确认，注册发生在 setName

type ConnectHandler struct{}

func NewConnectHandler() chat.Handler          { return &ConnectHandler{} }
func (h *ConnectHandler) Route() chat.RouteKey { return chat.RouteConnect }

func (h *ConnectHandler) Handle(_ context.Context, _ *chat.Context, ev chat.Event) error {
	logger.Infof("connection for connection ID %s is successful", ev.ConnID)
	return nil
}

// $disconnect：注销双索引并广播离开通知。
// 从没注册过的连接断开是要上报的异常，不做静默成功。

type DisconnectHandler struct{}

func NewDisconnectHandler() chat.Handler          { return &DisconnectHandler{} }
func (h *DisconnectHandler) Route() chat.RouteKey { return chat.RouteDisconnect }

func (h *DisconnectHandler) Handle(ctx context.Context, cx *chat.Context, ev chat.Event) error {
	userID, err := cx.Registry.Unregister(ctx, ev.ConnID)
	if err != nil {
		return errs.WrapMsg(err, "disconnect", "connection_id", ev.ConnID)
	}

	report, err := cx.Relay.Broadcast(ctx, fmt.Sprintf("%s has left the chat.", userID))
	if err != nil {
		logger.Errorf("failed to broadcast leave notice for %s: %v", userID, err)
	} else if report.Failed > 0 {
		logger.Warn(fmt.Sprintf("leave notice partial delivery: sent=%d failed=%d", report.Sent, report.Failed))
	}

	logger.Infof("successfully disconnected ID [%s]", ev.ConnID)
	return nil
}
