package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"ChatRelay/service/storage"
	errs "ChatRelay/tools/errs"
)

// 记录存成 hash，key 形如 <table>:<pk>，TTL 用 EXPIREAT 交给引擎清理。
// 多条写的原子性靠一段 Lua：先整体校验条件，再整体落盘，
// 任一条件不成立整个事务不写（返回 0）。

// ===== Lua 脚本 =====

// KEYS    = 事务涉及的所有 key
// ARGV[1] = cjson 编码的操作数组，每项：
//
//	{ op = "put"|"del", k = KEYS下标, if_absent = 0|1,
//	  expire_at = unix秒(0不过期), fields = {field = value, ...} }
//
// 返回：1 全部落盘；0 条件不成立（未写任何 key）
const luaTransactWrite = `
local ops = cjson.decode(ARGV[1])

for _, op in ipairs(ops) do
  if op.op == "put" and op.if_absent == 1 then
    if redis.call("EXISTS", KEYS[op.k]) == 1 then
      return 0
    end
  end
end

for _, op in ipairs(ops) do
  local key = KEYS[op.k]
  if op.op == "put" then
    redis.call("DEL", key)
    for field, value in pairs(op.fields) do
      redis.call("HSET", key, field, value)
    end
    local expAt = tonumber(op.expire_at)
    if expAt and expAt > 0 then
      redis.call("EXPIREAT", key, expAt)
    end
  else
    redis.call("DEL", key)
  end
end

return 1
`

type txOpWire struct {
	Op       string            `json:"op"`
	K        int               `json:"k"`
	IfAbsent int               `json:"if_absent"`
	ExpireAt int64             `json:"expire_at"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// KV Redis 版事务型 KV 引擎
type KV struct {
	rdb       *redis.Client
	luaTx     *redis.Script
	scanCount int64
}

func NewKV(rdb *redis.Client) *KV {
	return &KV{
		rdb:       rdb,
		luaTx:     redis.NewScript(luaTransactWrite),
		scanCount: 200,
	}
}

func recordKey(table, key string) string {
	return table + ":" + key
}

func (s *KV) Get(ctx context.Context, table, key string) (storage.Record, error) {
	m, err := s.rdb.HGetAll(ctx, recordKey(table, key)).Result()
	if err != nil {
		return nil, errs.ErrStorageFault.WrapMsg("hgetall", "table", table, "key", key, "err", err)
	}
	// HGETALL 对不存在的 key 返回空表
	if len(m) == 0 {
		return nil, errs.ErrRecordNotFound.WrapMsg("get", "table", table, "key", key)
	}
	return storage.Record(m), nil
}

func (s *KV) Put(ctx context.Context, table, key string, rec storage.Record, cond storage.Condition) error {
	return s.TransactWrite(ctx, []storage.TxOp{{
		Kind:  storage.OpPut,
		Table: table,
		Key:   key,
		Rec:   rec,
		Cond:  cond,
	}})
}

func (s *KV) Delete(ctx context.Context, table, key string) error {
	return s.TransactWrite(ctx, []storage.TxOp{{Kind: storage.OpDelete, Table: table, Key: key}})
}

func (s *KV) TransactWrite(ctx context.Context, ops []storage.TxOp) error {
	if len(ops) == 0 {
		return nil
	}

	keys := make([]string, 0, len(ops))
	wire := make([]txOpWire, 0, len(ops))
	for _, op := range ops {
		keys = append(keys, recordKey(op.Table, op.Key))
		w := txOpWire{K: len(keys)} // Lua 下标从 1 开始
		switch op.Kind {
		case storage.OpPut:
			w.Op = "put"
			if op.Cond == storage.CondIfAbsent {
				w.IfAbsent = 1
			}
			w.ExpireAt = op.Rec.ExpireAt()
			w.Fields = op.Rec
		case storage.OpDelete:
			w.Op = "del"
		}
		wire = append(wire, w)
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return errs.ErrStorageFault.WrapMsg("encode tx ops", "err", err)
	}

	res, err := s.luaTx.Run(ctx, s.rdb, keys, string(payload)).Int64()
	if err != nil {
		return errs.ErrStorageFault.WrapMsg("transact write", "ops", len(ops), "err", err)
	}
	if res != 1 {
		return errs.ErrConditionFailed.WrapMsg("transact write", "ops", len(ops))
	}
	return nil
}

func (s *KV) ScanColumn(ctx context.Context, table, column string) ([]string, error) {
	out := make([]string, 0, 64)
	iter := s.rdb.Scan(ctx, 0, table+":*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		v, err := s.rdb.HGet(ctx, iter.Val(), column).Result()
		if err == redis.Nil {
			continue // 扫描窗口内 key 过期了，跳过
		}
		if err != nil {
			return nil, errs.ErrStorageFault.WrapMsg("hget", "key", iter.Val(), "err", err)
		}
		out = append(out, v)
	}
	if err := iter.Err(); err != nil {
		return nil, errs.ErrStorageFault.WrapMsg("scan", "table", table, "err", err)
	}
	return out, nil
}
