package handlers

import (
	"context"
	"encoding/json"
	"strings"

	"ChatRelay/service/chat"
	errs "ChatRelay/tools/errs"
)

// sendMessage：私聊投递

type sendMessageBody struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type SendMessageHandler struct{}

func NewSendMessageHandler() chat.Handler          { return &SendMessageHandler{} }
func (h *SendMessageHandler) Route() chat.RouteKey { return chat.RouteSendMessage }

func (h *SendMessageHandler) Handle(ctx context.Context, cx *chat.Context, ev chat.Event) error {
	var body sendMessageBody
	if err := json.Unmarshal(ev.Body, &body); err != nil {
		return errs.ErrInvalidInput.WrapMsg("sendMessage: bad body", "err", err)
	}
	if strings.TrimSpace(body.To) == "" || body.Message == "" {
		return errs.ErrInvalidInput.WrapMsg("sendMessage: to and message are required")
	}

	if err := cx.Relay.SendDirect(ctx, ev.ConnID, body.To, body.Message); err != nil {
		return errs.WrapMsg(err, "sendMessage", "to", body.To)
	}
	return nil
}

// deleteMessage / viewMessages：预留路由，显式返回未实现

type deleteMessageBody struct {
	MessageID string `json:"messageId"`
}

type DeleteMessageHandler struct{}

func NewDeleteMessageHandler() chat.Handler          { return &DeleteMessageHandler{} }
func (h *DeleteMessageHandler) Route() chat.RouteKey { return chat.RouteDeleteMessage }

func (h *DeleteMessageHandler) Handle(ctx context.Context, cx *chat.Context, ev chat.Event) error {
	var body deleteMessageBody
	_ = json.Unmarshal(ev.Body, &body)
	return cx.Relay.DeleteMessage(ctx, body.MessageID)
}

type viewMessagesBody struct {
	Username string `json:"username"`
}

type ViewMessagesHandler struct{}

func NewViewMessagesHandler() chat.Handler          { return &ViewMessagesHandler{} }
func (h *ViewMessagesHandler) Route() chat.RouteKey { return chat.RouteViewMessages }

func (h *ViewMessagesHandler) Handle(ctx context.Context, cx *chat.Context, ev chat.Event) error {
	var body viewMessagesBody
	_ = json.Unmarshal(ev.Body, &body)
	_, err := cx.Relay.ViewMessages(ctx, ev.ConnID, body.Username)
	return err
}
