package mgo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ChatRelay/service/storage"
	errs "ChatRelay/tools/errs"
)

// 每条记录一个文档：{_id: 主键, fields: 字段表, expire_on: 过期时间}
// 条件写靠 _id 唯一约束（插入冲突 = 条件不成立），
// 多条写用 session 事务保证全有或全无（需要副本集部署）。
//
// mongo 的 TTL 清扫有延迟（分钟级），读路径统一带未过期过滤，
// 保证已到期未清扫的记录对调用方不可见；条件插入前先清掉
// 已到期未清扫的同键记录，保证过期后的键位立即可复用。

const fieldExpireOn = "expire_on"

type kvDoc struct {
	ID       string            `bson:"_id"`
	Fields   map[string]string `bson:"fields"`
	ExpireOn *time.Time        `bson:"expire_on,omitempty"`
}

// KV MongoDB 版事务型 KV 引擎
type KV struct {
	cli *Client
}

func NewKV(cli *Client) *KV {
	return &KV{cli: cli}
}

func toDoc(key string, rec storage.Record) kvDoc {
	doc := kvDoc{ID: key, Fields: rec}
	if exp := rec.ExpireAt(); exp > 0 {
		t := time.Unix(exp, 0).UTC()
		doc.ExpireOn = &t
	}
	return doc
}

// notExpiredFilter 未过期过滤条件
func notExpiredFilter() bson.M {
	return bson.M{"$or": bson.A{
		bson.M{fieldExpireOn: bson.M{"$exists": false}},
		bson.M{fieldExpireOn: nil},
		bson.M{fieldExpireOn: bson.M{"$gt": time.Now().UTC()}},
	}}
}

func (s *KV) Get(ctx context.Context, table, key string) (storage.Record, error) {
	filter := bson.M{"_id": key}
	for k, v := range notExpiredFilter() {
		filter[k] = v
	}

	var doc kvDoc
	err := s.cli.GetDB().Collection(table).FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrRecordNotFound.WrapMsg("get", "table", table, "key", key)
	}
	if err != nil {
		return nil, errs.ErrStorageFault.WrapMsg("find one", "table", table, "key", key, "err", err)
	}
	return storage.Record(doc.Fields), nil
}

func (s *KV) Put(ctx context.Context, table, key string, rec storage.Record, cond storage.Condition) error {
	err := s.applyPut(ctx, table, key, rec, cond)
	if err != nil && errs.AsCodeError(err) == nil {
		return errs.ErrStorageFault.WrapMsg("put", "table", table, "key", key, "err", err)
	}
	return err
}

func (s *KV) Delete(ctx context.Context, table, key string) error {
	_, err := s.cli.GetDB().Collection(table).DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return errs.ErrStorageFault.WrapMsg("delete", "table", table, "key", key, "err", err)
	}
	return nil
}

// applyPut 执行一次写入，ctx 可以是事务上下文
func (s *KV) applyPut(ctx context.Context, table, key string, rec storage.Record, cond storage.Condition) error {
	coll := s.cli.GetDB().Collection(table)
	doc := toDoc(key, rec)

	if cond == storage.CondIfAbsent {
		// 占位的可能是一条已到期、TTL 清扫还没来得及删的记录
		expired := bson.M{"_id": key, fieldExpireOn: bson.M{"$lte": time.Now().UTC()}}
		if _, err := coll.DeleteOne(ctx, expired); err != nil {
			return err
		}
		_, err := coll.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrConditionFailed.WrapMsg("put if absent", "table", table, "key", key)
		}
		return err
	}

	_, err := coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *KV) TransactWrite(ctx context.Context, ops []storage.TxOp) error {
	if len(ops) == 0 {
		return nil
	}

	sess, err := s.cli.GetDB().Client().StartSession()
	if err != nil {
		return errs.ErrStorageFault.WrapMsg("start session", "err", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, op := range ops {
			switch op.Kind {
			case storage.OpPut:
				if err := s.applyPut(sc, op.Table, op.Key, op.Rec, op.Cond); err != nil {
					return nil, err
				}
			case storage.OpDelete:
				if _, err := s.cli.GetDB().Collection(op.Table).DeleteOne(sc, bson.M{"_id": op.Key}); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		if codeErr := errs.AsCodeError(err); codeErr != nil {
			return err
		}
		return errs.ErrStorageFault.WrapMsg("transact write", "ops", len(ops), "err", err)
	}
	return nil
}

func (s *KV) ScanColumn(ctx context.Context, table, column string) ([]string, error) {
	field := "fields." + column
	cur, err := s.cli.GetDB().Collection(table).Find(
		ctx,
		notExpiredFilter(),
		options.Find().SetProjection(bson.M{field: 1}),
	)
	if err != nil {
		return nil, errs.ErrStorageFault.WrapMsg("scan", "table", table, "err", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]string, 0, 64)
	for cur.Next(ctx) {
		var doc kvDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, errs.ErrStorageFault.WrapMsg("decode", "table", table, "err", err)
		}
		if v, ok := doc.Fields[column]; ok {
			out = append(out, v)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, errs.ErrStorageFault.WrapMsg("cursor", "table", table, "err", err)
	}
	return out, nil
}
