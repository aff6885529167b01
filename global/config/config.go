package config

import (
	"time"

	"ChatRelay/tools"
)

// 存储驱动
const (
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config 进程配置。显式传入各组件构造函数，不做进程级单例。
type Config struct {
	Addr           string // HTTP/WS 监听地址
	NodeID         int64  // 雪花节点号
	GinReleaseMode bool

	StorageDriver string // redis | mongo | memory

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	MongoURI      string
	MongoDatabase string

	// 表名（redis 作为 key 前缀，mongo 作为 collection 名）
	ActiveUsersTable       string
	ActiveConnectionsTable string
	ChatMessagesTable      string

	// 过期时长，"<整数> <单位>" 形式，解析失败回退一周
	UserExpiration    string
	MessageExpiration string

	PushWriteTimeout time.Duration
}

// Load 从环境变量构建配置
func Load() Config {
	return Config{
		Addr:           tools.GetEnv("LISTEN_ADDR", ":8080"),
		NodeID:         int64(tools.GetEnvInt("NODE_ID", 1)),
		GinReleaseMode: tools.GetEnvBool("GIN_RELEASE_MODE", false),

		StorageDriver: tools.GetEnv("STORAGE_DRIVER", DriverRedis),

		RedisAddr:     tools.GetEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: tools.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       tools.GetEnvInt("REDIS_DB", 0),
		RedisPoolSize: tools.GetEnvInt("REDIS_POOL_SIZE", 20),

		MongoURI:      tools.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: tools.GetEnv("MONGO_DATABASE", "chatrelay"),

		ActiveUsersTable:       tools.GetEnv("ACTIVE_CHAT_USERS_TABLE", "active_chat_users"),
		ActiveConnectionsTable: tools.GetEnv("ACTIVE_CONNECTION_IDS_TABLE", "active_connection_ids"),
		ChatMessagesTable:      tools.GetEnv("CHAT_MESSAGES_TABLE", "chat_messages"),

		UserExpiration:    tools.GetEnv("CHAT_USER_EXPIRATION", "1 week"),
		MessageExpiration: tools.GetEnv("CHAT_MESSAGE_EXPIRATION", "1 week"),

		PushWriteTimeout: time.Duration(tools.GetEnvInt("PUSH_WRITE_TIMEOUT_MS", 5000)) * time.Millisecond,
	}
}
