package chat

import (
	"context"

	"ChatRelay/logger"
)

// Dispatcher 无状态路由表：一个事件精确命中一个 handler。
// 未知路由不是异常，打日志后原地返回，不调任何 handler。
type Dispatcher struct {
	cx       *Context
	handlers map[RouteKey]Handler
}

func NewDispatcher(cx *Context) *Dispatcher {
	return &Dispatcher{
		cx:       cx,
		handlers: make(map[RouteKey]Handler),
	}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Route()] = h }

func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) DispatchResult {
	h, ok := d.handlers[ev.Route]
	if !ok {
		logger.Errorf("invalid route key: [%s]", ev.Route)
		return DispatchResult{Route: ev.Route}
	}
	return DispatchResult{
		Route:   ev.Route,
		Handled: true,
		Err:     h.Handle(ctx, d.cx, ev),
	}
}
