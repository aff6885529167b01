package main

import (
	"context"
	"os"
	"time"

	"ChatRelay/global/config"
	"ChatRelay/logger"
	chatsvc "ChatRelay/module/chat/service"
	usersvc "ChatRelay/module/user/service"
	"ChatRelay/service/chat"
	"ChatRelay/service/chat/handlers"
	"ChatRelay/service/storage"
	"ChatRelay/service/storage/mgo"
	storageredis "ChatRelay/service/storage/redis"
	errs "ChatRelay/tools/errs"
	ids "ChatRelay/tools/ids"
)

// openGateway 按配置选存储引擎。mongo 顺带建 TTL 索引。
func openGateway(ctx context.Context, cfg config.Config) (storage.Gateway, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverRedis:
		rdb, err := storageredis.Open(storageredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: cfg.RedisPoolSize,
		})
		if err != nil {
			return nil, nil, err
		}
		return storageredis.NewKV(rdb), func() { _ = rdb.Close() }, nil

	case config.DriverMongo:
		cli, err := mgo.NewMongoDB(ctx, &mgo.Config{
			Uri:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		})
		if err != nil {
			return nil, nil, err
		}
		tables := []string{cfg.ActiveUsersTable, cfg.ActiveConnectionsTable, cfg.ChatMessagesTable}
		if err := cli.EnsureTTLIndexes(ctx, tables); err != nil {
			_ = cli.Close(context.Background())
			return nil, nil, err
		}
		return mgo.NewKV(cli), func() { _ = cli.Close(context.Background()) }, nil

	case config.DriverMemory:
		// 单机内存版，本地联调用
		return storage.NewMemoryGateway(), func() {}, nil
	}

	return nil, nil, errs.New("unknown storage driver", "driver", cfg.StorageDriver)
}

func main() {
	cfg := config.Load()
	defer logger.Sync()

	ids.SetNodeID(cfg.NodeID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, closeStore, err := openGateway(ctx, cfg)
	cancel()
	if err != nil {
		logger.Errorf("open storage [%s] failed: %v", cfg.StorageDriver, err)
		os.Exit(1)
	}
	defer closeStore()

	conns := chat.NewConnManager(cfg.PushWriteTimeout)
	defer conns.Close()

	registry := usersvc.NewRegistry(cfg, store)
	relay := chatsvc.NewRelay(cfg, store, registry, conns)

	disp := chat.NewDispatcher(&chat.Context{
		Cfg:      cfg,
		Registry: registry,
		Relay:    relay,
		Pusher:   conns,
	})
	disp.Register(handlers.NewConnectHandler())
	disp.Register(handlers.NewDisconnectHandler())
	disp.Register(handlers.NewSetNameHandler())
	disp.Register(handlers.NewSendMessageHandler())
	disp.Register(handlers.NewDeleteMessageHandler())
	disp.Register(handlers.NewViewMessagesHandler())
	disp.Register(handlers.NewListUsersHandler())
	disp.Register(handlers.NewPingHandler())

	srv := chat.NewServer(cfg, disp, conns)
	if err := srv.Run(); err != nil {
		logger.Errorf("server exited: %v", err)
		os.Exit(1)
	}
}
