package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "recruit_chat_service/cmd/chat_service/docs" // 引入生成的 Swagger 文档
	"recruit_chat_service/internal/chat/app"
	"recruit_chat_service/internal/chat/metrics"
	"recruit_chat_service/internal/chat/presence"
	"recruit_chat_service/internal/chat/repository"
	"recruit_chat_service/internal/chat/router"
	"recruit_chat_service/pkg/config"
	"recruit_chat_service/pkg/database"
	"recruit_chat_service/pkg/logger"
	"recruit_chat_service/pkg/middlewares"
	testtool "recruit_chat_service/pkg/test_tool"
	"recruit_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath).WithDefaults()

	if cfg.JWTSecret != "" {
		token.SetSecret(cfg.JWTSecret)
	}
	testtool.StartPprof()

	ctx := context.Background()

	// 1. 建立 Mongo 連線 (聊天室 + 訊息)
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("host", cfg.MongoSQL.Host),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	if err := repository.EnsureIndexes(ctx, mongo.Database); err != nil {
		logger.Log.Fatal("ensure mongo indexes", zap.Error(err))
	}

	// 2. 建立 PostgreSQL 連線 (會員資料查詢)
	pgURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pg, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    pgURL,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL database after retries", zap.String("host", cfg.PostgreSQL.Host), zap.Error(err))
	}
	defer pg.Close()

	store := repository.NewStore(
		repository.NewMongoConversationRepository(mongo.Database),
		repository.NewMongoMessageRepository(mongo.Database),
		repository.NewMemberDirectory(pg),
	)

	// 3. 建立 Redis 連線 (會員 session)
	var sessions middlewares.SessionValidator
	masterName, sentinel := config.GetRedisSetting()
	if len(sentinel) > 0 || cfg.Redis.Addr != "" {
		redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.Addr, cfg.Redis.RedisDB)
		if err != nil {
			logger.Log.Fatal("connect redis err", zap.Error(err))
		}
		defer redisClient.Close()
		sessions = repository.NewSessionRepository(
			database.NewRedisRepository[repository.MemberSession](redisClient),
			cfg.Redis.SessionTTL,
		)
	} else {
		logger.Log.Warn("redis not configured, sessions are not checked")
	}

	// 4. MinIO (訊息附件)
	var media repository.MediaRepository
	if cfg.MinIO.Endpoint != "" {
		minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
			Endpoint:      cfg.MinIO.Endpoint,
			User:          cfg.MinIO.User,
			Password:      cfg.MinIO.Password,
			BucketName:    cfg.MinIO.BucketName,
			UseSSL:        cfg.MinIO.UseSSL,
			RetryCount:    cfg.MinIO.RetryCount,
			RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("connect minio err", zap.Error(err))
		}
		media = repository.NewMinIOMediaRepository(minioClient, cfg.MinIO.PresignExpiry)
	}

	// 5. Kafka (聊天事件)
	events := repository.NewNopEventPublisher()
	if cfg.Kafka.Enabled {
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("connect kafka err", zap.Error(err))
		}
		defer writer.Close()
		events = repository.NewKafkaEventPublisher(writer)
	}

	// 6. RabbitMQ (離線通知)
	notifier := repository.NewNopOfflineNotifier()
	if cfg.RabbitMQ.Enabled {
		conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
			ConnectStr:    cfg.RabbitMQ.URL,
			RetryCount:    cfg.RabbitMQ.RetryCount,
			RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("connect rabbitmq err", zap.Error(err))
		}
		defer conn.Close()

		queue := cfg.RabbitMQ.Queue
		if queue == "" {
			queue = repository.OfflineNotificationQueue
		}
		ch, err := database.GetRabbitMQChannelWithRetry(conn, queue, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval))
		if err != nil {
			logger.Log.Fatal("open rabbitmq channel err", zap.Error(err))
		}
		defer ch.Close()
		notifier = repository.NewRabbitOfflineNotifier(ch, queue)
	}

	// 7. Prometheus
	var (
		m        *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.EnableMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
		gatherer = reg
	}

	// 8. gRPC health
	if cfg.GRPCHealthPort != "" {
		grpcServer, hs, err := database.StartHealthServer(":"+cfg.GRPCHealthPort, config.EnvConfig.ChatService)
		if err != nil {
			logger.Log.Fatal("start grpc health err", zap.Error(err))
		}
		defer func() {
			hs.SetServingStatus(config.EnvConfig.ChatService, healthpb.HealthCheckResponse_NOT_SERVING)
			grpcServer.GracefulStop()
		}()
	}

	// 9. 初始化 UseCases
	service := app.NewMessagingService(store, media, events, cfg.Messaging, m)
	registry := presence.NewRegistry()

	// 10. 啟動 Fiber
	r := fiber.New(fiber.Config{
		AppName:     config.EnvConfig.ChatService,
		ReadTimeout: cfg.Websocket.HandshakeTimeout,
	})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(recover.New())
	r.Use(cors.New())
	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	// 注册路由
	router.RegisterRoutes(r, router.Dependencies{
		Websocket:        app.NewChatWebsocketHandler(service, registry, notifier, cfg.Websocket, m),
		REST:             app.NewChatHandler(service),
		Sessions:         sessions,
		Gatherer:         gatherer,
		HandshakeTimeout: cfg.Websocket.HandshakeTimeout,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("shutting down chat service")
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Error("fiber shutdown", zap.Error(err))
		}
	}()

	// Listen
	port := ":" + cfg.Port
	logger.Log.Info("Chat Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}
