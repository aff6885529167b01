package model

import (
	"strconv"
	"time"

	"ChatRelay/service/storage"
	errs "ChatRelay/tools/errs"
)

// 在线用户双索引：active_chat_users 按 user_id 存，
// active_connection_ids 按 connection_id 存，两边必须同生共死。

const (
	FieldUserID       = "user_id"
	FieldConnectionID = "connection_id"
	FieldCreatedAt    = "created_at"
)

// UserRecord 在线用户记录，主键 user_id
type UserRecord struct {
	UserID       string
	ConnectionID string
	CreatedAt    time.Time
	ExpireAt     int64 // unix 秒
}

// ConnectionRecord 在线连接索引记录，主键 connection_id
type ConnectionRecord struct {
	ConnectionID string
	UserID       string
	CreatedAt    time.Time
	ExpireAt     int64
}

func (u UserRecord) ToRecord() storage.Record {
	return storage.Record{
		FieldUserID:           u.UserID,
		FieldConnectionID:     u.ConnectionID,
		FieldCreatedAt:        u.CreatedAt.UTC().Format(time.RFC3339),
		storage.FieldExpireAt: strconv.FormatInt(u.ExpireAt, 10),
	}
}

func (c ConnectionRecord) ToRecord() storage.Record {
	return storage.Record{
		FieldConnectionID:     c.ConnectionID,
		FieldUserID:           c.UserID,
		FieldCreatedAt:        c.CreatedAt.UTC().Format(time.RFC3339),
		storage.FieldExpireAt: strconv.FormatInt(c.ExpireAt, 10),
	}
}

func UserRecordFrom(rec storage.Record) (UserRecord, error) {
	if rec[FieldUserID] == "" || rec[FieldConnectionID] == "" {
		return UserRecord{}, errs.ErrStorageFault.WrapMsg("malformed user record")
	}
	createdAt, _ := time.Parse(time.RFC3339, rec[FieldCreatedAt])
	return UserRecord{
		UserID:       rec[FieldUserID],
		ConnectionID: rec[FieldConnectionID],
		CreatedAt:    createdAt,
		ExpireAt:     rec.ExpireAt(),
	}, nil
}

func ConnectionRecordFrom(rec storage.Record) (ConnectionRecord, error) {
	if rec[FieldUserID] == "" || rec[FieldConnectionID] == "" {
		return ConnectionRecord{}, errs.ErrStorageFault.WrapMsg("malformed connection record")
	}
	createdAt, _ := time.Parse(time.RFC3339, rec[FieldCreatedAt])
	return ConnectionRecord{
		ConnectionID: rec[FieldConnectionID],
		UserID:       rec[FieldUserID],
		CreatedAt:    createdAt,
		ExpireAt:     rec.ExpireAt(),
	}, nil
}
