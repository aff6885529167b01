package chat

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ChatRelay/global/config"
	"ChatRelay/logger"
	errs "ChatRelay/tools/errs"
	ids "ChatRelay/tools/ids"
	"ChatRelay/tools/safe"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server WebSocket 接入层：升级连接、分配连接ID、逐帧调度。
// 调度结果只打日志，不给客户端回结构化错误码。
type Server struct {
	cfg    config.Config
	disp   *Dispatcher
	conns  *ConnManager
	engine *gin.Engine
}

func NewServer(cfg config.Config, disp *Dispatcher, conns *ConnManager) *Server {
	s := &Server{
		cfg:   cfg,
		disp:  disp,
		conns: conns,
	}

	if cfg.GinReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/ws", s.HandleWS)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": conns.Count()})
	})
	s.engine = engine

	return s
}

func (s *Server) Run() error {
	logger.Infof("[WS] listening on %s", s.cfg.Addr)
	return s.engine.Run(s.cfg.Addr)
}

// HandleWS ===== WebSocket 处理 =====
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	connID := ids.GenerateString()
	s.conns.Add(connID, ws)
	defer func() {
		s.dispatch(Event{Route: RouteDisconnect, ConnID: connID})
		s.conns.Remove(connID)
		closeQuiet(ws)
	}()

	s.dispatch(Event{Route: RouteConnect, ConnID: connID})

	// ---- 读循环：只读不写，出错即退出 ----
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed conn_id=%s err=%v", connID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout conn_id=%s err=%v", connID, rerr)
			} else {
				logger.Infof("[WS] read err conn_id=%s err=%v", connID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		ev, perr := ParseEventFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[WS] parse frame err conn_id=%s err=%v sample=%q", connID, perr, sample)
			continue
		}

		// $connect/$disconnect 是传输层合成的，客户端帧里出现按未知路由处理
		if ev.Route == RouteConnect || ev.Route == RouteDisconnect {
			logger.Errorf("invalid route key: [%s]", ev.Route)
			continue
		}

		ev.ConnID = connID
		s.dispatch(ev)
	}
}

// dispatch 带 panic 防护跑一次调度：坏帧最多废掉自己，不拖垮读循环
func (s *Server) dispatch(ev Event) {
	safe.SafeRun(func() {
		res := s.disp.Dispatch(context.Background(), ev)
		if res.Err != nil {
			logger.Errorf("[%s] conn_id=%s code=%d failed: %v", ev.Route, ev.ConnID, errs.CodeOf(res.Err), res.Err)
		}
	})
}
