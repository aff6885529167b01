package model

import (
	"strconv"
	"time"

	"ChatRelay/service/storage"
)

// 消息审计记录，主键 message_id。只记真正送达的消息，
// 只插入不更新，过期由引擎 TTL 清理。

const (
	FieldMessageID    = "message_id"
	FieldConnectionID = "connection_id"
	FieldReceiver     = "receiver"
	FieldMessage      = "message"
	FieldCreatedAt    = "created_at"
)

// MessageRecord 一条已送达消息的审计记录
type MessageRecord struct {
	MessageID          string
	SenderConnectionID string
	ReceiverUserID     string
	Body               string
	CreatedAt          time.Time
	ExpireAt           int64 // unix 秒
}

func (m MessageRecord) ToRecord() storage.Record {
	return storage.Record{
		FieldMessageID:        m.MessageID,
		FieldConnectionID:     m.SenderConnectionID,
		FieldReceiver:         m.ReceiverUserID,
		FieldMessage:          m.Body,
		FieldCreatedAt:        m.CreatedAt.UTC().Format(time.RFC3339),
		storage.FieldExpireAt: strconv.FormatInt(m.ExpireAt, 10),
	}
}

func MessageRecordFrom(rec storage.Record) MessageRecord {
	createdAt, _ := time.Parse(time.RFC3339, rec[FieldCreatedAt])
	return MessageRecord{
		MessageID:          rec[FieldMessageID],
		SenderConnectionID: rec[FieldConnectionID],
		ReceiverUserID:     rec[FieldReceiver],
		Body:               rec[FieldMessage],
		CreatedAt:          createdAt,
		ExpireAt:           rec.ExpireAt(),
	}
}
