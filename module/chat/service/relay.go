package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ChatRelay/global/config"
	"ChatRelay/module/chat/model"
	usersvc "ChatRelay/module/user/service"
	"ChatRelay/service/storage"
	errs "ChatRelay/tools/errs"
	"ChatRelay/tools/safe"
	"ChatRelay/tools/timeutil"
)

// Pusher 推送网关：把 payload 投递到一条在线连接，连接失效返回 ErrDeliveryFailed
type Pusher interface {
	Push(ctx context.Context, connID string, payload []byte) error
}

// BroadcastReport 广播结果：按目标统计，单点失败不掩盖整体进度
type BroadcastReport struct {
	Total     int
	Sent      int
	Failed    int
	FailedIDs []string
}

// 审计消息ID的命名空间，固定值保证同一分钟桶内重试生成同一个ID
var auditNamespace = uuid.MustParse("9c1f6a7e-3d52-4b8a-9f04-2e6f1c5b8d37")

// Relay 私聊投递 + 全员广播。先推送后落审计：
// 审计表只记真正送达的消息，推不出去就什么都不写。
type Relay struct {
	store    storage.Gateway
	registry *usersvc.Registry
	pusher   Pusher
	msgTable string
	msgTTL   time.Duration
	clock    func() time.Time
}

func NewRelay(cfg config.Config, store storage.Gateway, registry *usersvc.Registry, pusher Pusher) *Relay {
	return &Relay{
		store:    store,
		registry: registry,
		pusher:   pusher,
		msgTable: cfg.ChatMessagesTable,
		msgTTL:   timeutil.ParseExpiration(cfg.MessageExpiration),
		clock:    time.Now,
	}
}

// SetClock 注入时钟，仅测试使用
func (r *Relay) SetClock(clock func() time.Time) { r.clock = clock }

// SendDirect 私聊：解析发送方、解析接收方连接、推送、落审计，逐步短路。
// 推送成功但审计失败仍然报错（调用方可以告警或只重试审计步），
// 审计ID是确定性的，重试不会重复推送也不会写出第二条记录。
func (r *Relay) SendDirect(ctx context.Context, senderConnID, receiverUserID, body string) error {
	sender, err := r.registry.LookupByConnection(ctx, senderConnID)
	if err != nil {
		return errs.WrapMsg(err, "send: resolve sender", "connection_id", senderConnID)
	}

	receiver, err := r.registry.LookupByUser(ctx, receiverUserID)
	if err != nil {
		return errs.WrapMsg(err, "send: resolve receiver", "receiver", receiverUserID)
	}

	payload := fmt.Sprintf("[%s]: %s", sender.UserID, body)
	if err := r.pusher.Push(ctx, receiver.ConnectionID, []byte(payload)); err != nil {
		return errs.WrapMsg(err, "send: push", "receiver", receiverUserID, "connection_id", receiver.ConnectionID)
	}

	if err := r.PersistMessage(ctx, senderConnID, receiverUserID, body); err != nil {
		return errs.WrapMsg(err, "send: audit", "receiver", receiverUserID)
	}
	return nil
}

// Broadcast 给所有在线连接推 body，并发扇出、全部等完。
// 返回分目标统计：失效连接很常见，不应该让整场广播算失败。
func (r *Relay) Broadcast(ctx context.Context, body string) (BroadcastReport, error) {
	connIDs, err := r.registry.ListConnectionIDs(ctx)
	if err != nil {
		return BroadcastReport{}, errs.WrapMsg(err, "broadcast: list connections")
	}

	report := BroadcastReport{Total: len(connIDs)}
	payload := []byte(body)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, connID := range connIDs {
		connID := connID
		wg.Add(1)
		safe.SafeGo(func() {
			defer wg.Done()
			err := r.pusher.Push(ctx, connID, payload)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.FailedIDs = append(report.FailedIDs, connID)
			} else {
				report.Sent++
			}
		})
	}
	wg.Wait()

	return report, nil
}

// PersistMessage 落一条审计记录，无条件写。
// message_id 由 (发送连接, 接收人, 分钟桶) 哈希生成，重试幂等。
func (r *Relay) PersistMessage(ctx context.Context, senderConnID, receiverUserID, body string) error {
	now := r.clock()

	rec := model.MessageRecord{
		MessageID:          r.auditMessageID(senderConnID, receiverUserID, now),
		SenderConnectionID: senderConnID,
		ReceiverUserID:     receiverUserID,
		Body:               body,
		CreatedAt:          now,
		ExpireAt:           now.Add(r.msgTTL).Unix(),
	}

	if err := r.store.Put(ctx, r.msgTable, rec.MessageID, rec.ToRecord(), storage.CondNone); err != nil {
		return errs.WrapMsg(err, "persist message", "message_id", rec.MessageID)
	}
	return nil
}

func (r *Relay) auditMessageID(senderConnID, receiverUserID string, now time.Time) string {
	bucket := now.UTC().Truncate(time.Minute).Unix()
	seed := fmt.Sprintf("%s|%s|%d", senderConnID, receiverUserID, bucket)
	return uuid.NewSHA1(auditNamespace, []byte(seed)).String()
}

// ViewMessages 预留：按 (connection, user) 拉取会话消息
func (r *Relay) ViewMessages(ctx context.Context, connID, userID string) ([]model.MessageRecord, error) {
	return nil, errs.ErrUnimplemented.WrapMsg("view messages", "connection_id", connID, "user_id", userID)
}

// DeleteMessage 预留：删除指定审计记录
func (r *Relay) DeleteMessage(ctx context.Context, messageID string) error {
	return errs.ErrUnimplemented.WrapMsg("delete message", "message_id", messageID)
}
