package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	SessionSecret     string
	TokenSecret       string
	TokenTTL          time.Duration
	GinMode           string
	UploadDir         string
	UploadURLPath     string
	StatusJobInterval time.Duration
	WatcherTick       time.Duration
	PushGatewayURL    string
	SeedUserPseudo    string
	SeedUserPassword  string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databasePath := strings.TrimSpace(os.Getenv("DATABASE_PATH"))
	if databasePath == "" {
		databasePath = "gardenlog.db"
	}

	sessionSecret := strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if sessionSecret == "" {
		sessionSecret = "gardenlog-dev-secret"
	}

	tokenSecret := strings.TrimSpace(os.Getenv("TOKEN_SECRET"))
	if tokenSecret == "" {
		tokenSecret = sessionSecret
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	uploadDir := strings.TrimSpace(os.Getenv("UPLOAD_DIR"))
	if uploadDir == "" {
		uploadDir = "web/static/uploads"
	}

	uploadURLPath := strings.TrimSpace(os.Getenv("UPLOAD_URL_PATH"))
	if uploadURLPath == "" {
		uploadURLPath = "/static/uploads"
	}

	pushGatewayURL := strings.TrimSpace(os.Getenv("PUSH_GATEWAY_URL"))
	if pushGatewayURL == "" {
		pushGatewayURL = "https://fcm.googleapis.com/fcm/send"
	}

	seedUserPseudo := strings.TrimSpace(os.Getenv("SEED_USER_PSEUDO"))
	seedUserPassword := strings.TrimSpace(os.Getenv("SEED_USER_PASSWORD"))

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      databasePath,
		SessionSecret:     sessionSecret,
		TokenSecret:       tokenSecret,
		TokenTTL:          durationEnv("TOKEN_TTL", 30*24*time.Hour),
		GinMode:           ginMode,
		UploadDir:         uploadDir,
		UploadURLPath:     uploadURLPath,
		StatusJobInterval: durationEnv("STATUS_JOB_INTERVAL", time.Hour),
		WatcherTick:       durationEnv("WATCHER_TICK", 5*time.Second),
		PushGatewayURL:    pushGatewayURL,
		SeedUserPseudo:    seedUserPseudo,
		SeedUserPassword:  seedUserPassword,
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
