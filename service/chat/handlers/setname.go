package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ChatRelay/logger"
	"ChatRelay/service/chat"
	errs "ChatRelay/tools/errs"
)

// setName：注册显示名，成功后广播加入通知

type setNameBody struct {
	Username string `json:"username"`
}

type SetNameHandler struct{}

func NewSetNameHandler() chat.Handler          { return &SetNameHandler{} }
func (h *SetNameHandler) Route() chat.RouteKey { return chat.RouteSetName }

func (h *SetNameHandler) Handle(ctx context.Context, cx *chat.Context, ev chat.Event) error {
	var body setNameBody
	if err := json.Unmarshal(ev.Body, &body); err != nil {
		return errs.ErrInvalidInput.WrapMsg("setName: bad body", "err", err)
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		return errs.ErrInvalidInput.WrapMsg("setName: username is required")
	}

	if err := cx.Registry.Register(ctx, username, ev.ConnID); err != nil {
		return errs.WrapMsg(err, "setName", "username", username, "connection_id", ev.ConnID)
	}

	report, err := cx.Relay.Broadcast(ctx, fmt.Sprintf("%s has joined the chat.", username))
	if err != nil {
		logger.Errorf("failed to broadcast join notice for %s: %v", username, err)
	} else if report.Failed > 0 {
		logger.Warn(fmt.Sprintf("join notice partial delivery: sent=%d failed=%d", report.Sent, report.Failed))
	}

	return nil
}
