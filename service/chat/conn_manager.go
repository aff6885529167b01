package chat

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	errs "ChatRelay/tools/errs"
)

// ===== 数据结构 =====

// WsConn 一条在线 WebSocket 连接。
// gorilla 的 WriteMessage 不能并发调用，所有写都过 writeMu。
type WsConn struct {
	ConnID string
	Conn   *websocket.Conn
	Remote net.Addr

	CreatedAt time.Time

	writeMu sync.Mutex
}

func (c *WsConn) writeWithDeadline(payload []byte, d time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(d))
	return c.Conn.WriteMessage(websocket.TextMessage, payload)
}

// ConnManager 本节点在线连接表，connID -> WsConn。
// 同时是推送网关的本地实现：Push 找不到连接或写失败都算投递失败。
type ConnManager struct {
	mu   sync.RWMutex
	byID map[string]*WsConn

	writeTimeout time.Duration
	stopOnce     sync.Once
}

func NewConnManager(writeTimeout time.Duration) *ConnManager {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &ConnManager{
		byID:         make(map[string]*WsConn),
		writeTimeout: writeTimeout,
	}
}

// Add 登记一条新连接
func (m *ConnManager) Add(connID string, conn *websocket.Conn) *WsConn {
	wc := &WsConn{
		ConnID:    connID,
		Conn:      conn,
		Remote:    conn.RemoteAddr(),
		CreatedAt: time.Now(),
	}
	m.mu.Lock()
	m.byID[connID] = wc
	m.mu.Unlock()
	return wc
}

func (m *ConnManager) Get(connID string) (*WsConn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wc, ok := m.byID[connID]
	return wc, ok
}

func (m *ConnManager) Remove(connID string) {
	m.mu.Lock()
	delete(m.byID, connID)
	m.mu.Unlock()
}

func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Close 关掉所有连接，进程退出时用
func (m *ConnManager) Close() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, wc := range m.byID {
			closeQuiet(wc.Conn)
		}
		m.byID = make(map[string]*WsConn)
	})
}

// Push 实现推送网关：把 payload 投到指定连接。
// 写失败说明连接已死：关掉并从表里摘除，防止死连接占用资源。
func (m *ConnManager) Push(_ context.Context, connID string, payload []byte) error {
	wc, ok := m.Get(connID)
	if !ok {
		return errs.ErrDeliveryFailed.WrapMsg("connection not found", "connection_id", connID)
	}
	if err := wc.writeWithDeadline(payload, m.writeTimeout); err != nil {
		closeQuiet(wc.Conn)
		m.Remove(connID)
		return errs.ErrDeliveryFailed.WrapMsg("write", "connection_id", connID, "err", err)
	}
	return nil
}

func closeQuiet(conn *websocket.Conn) {
	if conn != nil {
		_ = conn.Close()
	}
}
