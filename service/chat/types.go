package chat

import (
	"context"
	"encoding/json"

	"ChatRelay/global/config"
	chatsvc "ChatRelay/module/chat/service"
	usersvc "ChatRelay/module/user/service"
)

// RouteKey 入站事件的路由键。$connect/$disconnect 由传输层合成，
// 客户端帧里出现视为非法。
type RouteKey string

const (
	RouteConnect       RouteKey = "$connect"
	RouteDisconnect    RouteKey = "$disconnect"
	RouteSetName       RouteKey = "setName"
	RouteSendMessage   RouteKey = "sendMessage"
	RouteDeleteMessage RouteKey = "deleteMessage"
	RouteViewMessages  RouteKey = "viewMessages"
	RouteListUsers     RouteKey = "listUsers"
	RoutePing          RouteKey = "ping"
)

// Event 一次入站事件：路由键 + 连接ID + 可选请求体。
// 请求体不在这里解码，各 handler 自己校验自己的格式。
type Event struct {
	Route  RouteKey
	ConnID string
	Body   json.RawMessage
}

// Context 注入给 handler 的依赖集合，构造时装配好，调度期间只读
type Context struct {
	Cfg      config.Config
	Registry *usersvc.Registry
	Relay    *chatsvc.Relay
	Pusher   chatsvc.Pusher
}

// Handler 单个路由的处理器
type Handler interface {
	Route() RouteKey
	Handle(ctx context.Context, cx *Context, ev Event) error
}

// DispatchResult 一次调度的统一结果，传输层据此打日志/回执
type DispatchResult struct {
	Route   RouteKey
	Handled bool // false = 未知路由，显式 no-op
	Err     error
}
