package storage

import (
	"context"
	"sync"
	"time"

	errs "ChatRelay/tools/errs"
)

// MemoryGateway 单进程内存实现，本地运行和单测用。
// TTL 采用惰性清理：读到已过期的记录按不存在处理并顺手删除，
// 和真实引擎的后台清扫对调用方是同一种可见性。
type MemoryGateway struct {
	mu     sync.RWMutex
	tables map[string]map[string]Record
	clock  func() time.Time // 可注入时钟（单测用）；nil => time.Now
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		tables: make(map[string]map[string]Record),
	}
}

// SetClock 注入时钟，仅测试使用
func (m *MemoryGateway) SetClock(clock func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
}

func (m *MemoryGateway) now() time.Time {
	if m.clock != nil {
		return m.clock()
	}
	return time.Now()
}

func (m *MemoryGateway) table(name string) map[string]Record {
	t, ok := m.tables[name]
	if !ok {
		t = make(map[string]Record)
		m.tables[name] = t
	}
	return t
}

// exists 在持锁状态下判断记录是否存在且未过期
func (m *MemoryGateway) exists(table, key string) bool {
	rec, ok := m.table(table)[key]
	if !ok {
		return false
	}
	if rec.Expired(m.now()) {
		delete(m.table(table), key)
		return false
	}
	return true
}

func (m *MemoryGateway) Get(_ context.Context, table, key string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists(table, key) {
		return nil, errs.ErrRecordNotFound.WrapMsg("get", "table", table, "key", key)
	}
	src := m.table(table)[key]
	out := make(Record, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryGateway) Put(ctx context.Context, table, key string, rec Record, cond Condition) error {
	return m.TransactWrite(ctx, []TxOp{{Kind: OpPut, Table: table, Key: key, Rec: rec, Cond: cond}})
}

func (m *MemoryGateway) Delete(ctx context.Context, table, key string) error {
	return m.TransactWrite(ctx, []TxOp{{Kind: OpDelete, Table: table, Key: key}})
}

func (m *MemoryGateway) TransactWrite(_ context.Context, ops []TxOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 先整体校验条件，再整体落盘
	for _, op := range ops {
		if op.Kind == OpPut && op.Cond == CondIfAbsent && m.exists(op.Table, op.Key) {
			return errs.ErrConditionFailed.WrapMsg("transact write", "table", op.Table, "key", op.Key)
		}
	}
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			cp := make(Record, len(op.Rec))
			for k, v := range op.Rec {
				cp[k] = v
			}
			m.table(op.Table)[op.Key] = cp
		case OpDelete:
			delete(m.table(op.Table), op.Key)
		}
	}
	return nil
}

func (m *MemoryGateway) ScanColumn(_ context.Context, table, column string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.table(table)
	out := make([]string, 0, len(t))
	now := m.now()
	for key, rec := range t {
		if rec.Expired(now) {
			delete(t, key)
			continue
		}
		if v, ok := rec[column]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}
