// Command issue_token writes a member session to redis and prints a JWT for local testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"recruit_chat_service/internal/chat/repository"
	"recruit_chat_service/pkg/config"
	"recruit_chat_service/pkg/database"
	"recruit_chat_service/pkg/logger"
	"recruit_chat_service/pkg/token"

	"go.uber.org/zap"
)

func main() {
	memberID := flag.String("member", "", "member id the token is issued for")
	role := flag.String("role", string(token.RoleCandidate), "candidate, employer or admin")
	flag.Parse()

	logger.Log = logger.Initialize("issue_token", config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()

	if *memberID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath).WithDefaults()
	if cfg.JWTSecret != "" {
		token.SetSecret(cfg.JWTSecret)
	}

	tok, err := token.GenerateJWTWrapper(*memberID, *role)
	if err != nil {
		logger.Log.Fatal("generate jwt", zap.Error(err))
	}

	masterName, sentinel := config.GetRedisSetting()
	client, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.Addr, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal("connect redis err", zap.Error(err))
	}
	defer client.Close()

	sessions := repository.NewSessionRepository(database.NewRedisRepository[repository.MemberSession](client), cfg.Redis.SessionTTL)
	if err := sessions.CreateSession(context.Background(), *memberID, tok); err != nil {
		logger.Log.Fatal("create session", zap.Error(err))
	}

	fmt.Println(tok)
}
