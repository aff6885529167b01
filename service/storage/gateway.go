package storage

import (
	"context"
	"strconv"
	"time"
)

// 统一的事务型 KV 存储契约。注册表和消息审计都走这里，
// 引擎负责 TTL 清理，应用层只写 expire_at。

// FieldExpireAt 记录里的过期时间字段（unix 秒），0 表示不过期
const FieldExpireAt = "expire_at"

// Record 一条记录的字段集合
type Record map[string]string

// ExpireAt 返回记录的过期时间（unix 秒），没有或非法返回 0
func (r Record) ExpireAt() int64 {
	v, ok := r[FieldExpireAt]
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Expired 判断记录在 now 时刻是否已过期
func (r Record) Expired(now time.Time) bool {
	exp := r.ExpireAt()
	return exp > 0 && exp <= now.Unix()
}

// Condition 写入前置条件
type Condition int

const (
	CondNone     Condition = iota // 无条件覆盖
	CondIfAbsent                  // 记录不存在才允许写（attribute_not_exists 语义）
)

// OpKind 事务操作类型
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// TxOp 事务中的单个操作
type TxOp struct {
	Kind  OpKind
	Table string
	Key   string
	Rec   Record // OpPut 有效
	Cond  Condition
}

// Gateway 事务型 KV 引擎。所有实现必须保证 TransactWrite 的
// 全有或全无语义：任一条件不成立，整个事务不落任何写。
type Gateway interface {
	// Get 按主键读取，未命中返回 errs.ErrRecordNotFound
	Get(ctx context.Context, table, key string) (Record, error)

	// Put 单条写入，cond 不成立返回 errs.ErrConditionFailed
	Put(ctx context.Context, table, key string, rec Record, cond Condition) error

	// Delete 按主键删除，键不存在视为成功
	Delete(ctx context.Context, table, key string) error

	// TransactWrite 原子多条写
	TransactWrite(ctx context.Context, ops []TxOp) error

	// ScanColumn 全表投影扫描，返回指定列的所有值
	ScanColumn(ctx context.Context, table, column string) ([]string, error)
}
