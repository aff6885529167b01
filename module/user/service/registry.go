package service

import (
	"context"
	"time"

	"ChatRelay/global/config"
	"ChatRelay/module/user/model"
	"ChatRelay/service/storage"
	errs "ChatRelay/tools/errs"
	"ChatRelay/tools/timeutil"
)

// Registry 维护 user↔connection 双向映射。
// 两张表的变更永远打包成一次 TransactWrite，原子性压给存储引擎，
// 进程内不加锁：多实例并发注册靠引擎的事务隔离保证正确。
type Registry struct {
	store      storage.Gateway
	usersTable string
	connsTable string
	userTTL    time.Duration
	clock      func() time.Time
}

func NewRegistry(cfg config.Config, store storage.Gateway) *Registry {
	return &Registry{
		store:      store,
		usersTable: cfg.ActiveUsersTable,
		connsTable: cfg.ActiveConnectionsTable,
		// 配置写错回退一周，注册不能因为格式问题失败
		userTTL: timeutil.ParseExpiration(cfg.UserExpiration),
		clock:   time.Now,
	}
}

// SetClock 注入时钟，仅测试使用
func (r *Registry) SetClock(clock func() time.Time) { r.clock = clock }

// Register 注册 userID↔connID 映射：两条 IfAbsent 写打包成一个事务，
// 任一侧已存在（重名或连接被占用）整个事务拒绝，不存在半注册状态。
func (r *Registry) Register(ctx context.Context, userID, connID string) error {
	if userID == "" || connID == "" {
		return errs.ErrInvalidInput.WrapMsg("register", "user_id", userID, "connection_id", connID)
	}

	now := r.clock()
	expireAt := now.Add(r.userTTL).Unix()

	user := model.UserRecord{
		UserID:       userID,
		ConnectionID: connID,
		CreatedAt:    now,
		ExpireAt:     expireAt,
	}
	conn := model.ConnectionRecord{
		ConnectionID: connID,
		UserID:       userID,
		CreatedAt:    now,
		ExpireAt:     expireAt,
	}

	ops := []storage.TxOp{
		{Kind: storage.OpPut, Table: r.usersTable, Key: userID, Rec: user.ToRecord(), Cond: storage.CondIfAbsent},
		{Kind: storage.OpPut, Table: r.connsTable, Key: connID, Rec: conn.ToRecord(), Cond: storage.CondIfAbsent},
	}
	if err := r.store.TransactWrite(ctx, ops); err != nil {
		return errs.WrapMsg(err, "register user", "user_id", userID, "connection_id", connID)
	}
	return nil
}

// Unregister 注销连接并返回释放的 userID（调用方要广播离开通知）。
// 连接不存在按失败处理：没注册过却断开，属于要上报的异常。
func (r *Registry) Unregister(ctx context.Context, connID string) (string, error) {
	conn, err := r.LookupByConnection(ctx, connID)
	if err != nil {
		return "", errs.WrapMsg(err, "unregister: unknown connection", "connection_id", connID)
	}

	ops := []storage.TxOp{
		{Kind: storage.OpDelete, Table: r.usersTable, Key: conn.UserID},
		{Kind: storage.OpDelete, Table: r.connsTable, Key: connID},
	}
	if err := r.store.TransactWrite(ctx, ops); err != nil {
		return "", errs.WrapMsg(err, "unregister user", "user_id", conn.UserID, "connection_id", connID)
	}
	return conn.UserID, nil
}

// LookupByConnection 按连接查用户侧记录
func (r *Registry) LookupByConnection(ctx context.Context, connID string) (model.ConnectionRecord, error) {
	rec, err := r.store.Get(ctx, r.connsTable, connID)
	if err != nil {
		return model.ConnectionRecord{}, err
	}
	return model.ConnectionRecordFrom(rec)
}

// LookupByUser 按用户查连接侧记录
func (r *Registry) LookupByUser(ctx context.Context, userID string) (model.UserRecord, error) {
	rec, err := r.store.Get(ctx, r.usersTable, userID)
	if err != nil {
		return model.UserRecord{}, err
	}
	return model.UserRecordFrom(rec)
}

// ListUserIDs 全表扫出在线用户名，listUsers 查询用。
// 无分页：工作集就是当前在线人数，量级可控（扩容是另一回事）。
func (r *Registry) ListUserIDs(ctx context.Context) ([]string, error) {
	ids, err := r.store.ScanColumn(ctx, r.usersTable, model.FieldUserID)
	if err != nil {
		return nil, errs.WrapMsg(err, "list user ids")
	}
	return ids, nil
}

// ListConnectionIDs 全表扫出在线连接，广播扇出用
func (r *Registry) ListConnectionIDs(ctx context.Context) ([]string, error) {
	ids, err := r.store.ScanColumn(ctx, r.connsTable, model.FieldConnectionID)
	if err != nil {
		return nil, errs.WrapMsg(err, "list connection ids")
	}
	return ids, nil
}
