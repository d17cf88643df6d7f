package main

import (
	"os"
	"time"

	"aiproxy/internal/config"
	"aiproxy/internal/crypto"
	"aiproxy/internal/database"
	"aiproxy/internal/gateway"
	"aiproxy/internal/registry"
	"aiproxy/internal/repository"
	"aiproxy/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	gin.SetMode(gin.ReleaseMode)

	cfg := config.Load()

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if err := database.Init(cfg.DBPath); err != nil {
		log.Fatalf("数据库初始化失败: %v", err)
	}
	defer database.Close()

	encryptionKey := crypto.DeriveKey(cfg.MasterKey)
	if encryptionKey == nil {
		log.Warn("MASTER_KEY 未配置，API key 将以明文存储")
	}

	// 路由表快照：启动时加载，管理接口变更后重载
	reg := registry.New(repository.NewProviderRepository(), repository.NewAliasRepository(), encryptionKey)
	if err := reg.Reload(); err != nil {
		log.Fatalf("路由表加载失败: %v", err)
	}

	// 异步日志写入器
	logWriter := gateway.NewLogWriter(repository.NewRequestLogRepository(), 10000, 100, 200*time.Millisecond)
	defer logWriter.Stop()

	dispatcher := gateway.NewDispatcher(
		reg,
		repository.NewPromptConfigRepository(),
		repository.NewSettingsRepository(),
		gateway.NewFixedWindowLimiter(nil),
		logWriter,
	)

	r := router.Setup(router.Deps{
		Registry:      reg,
		Dispatcher:    dispatcher,
		EncryptionKey: encryptionKey,
	})

	port := cfg.ServerPort
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}

	log.Infof("服务器启动在 http://0.0.0.0:%s", port)
	if err := r.Run("0.0.0.0:" + port); err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}
}
