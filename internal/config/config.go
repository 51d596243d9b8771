package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the relay process.
type Config struct {
	Server     ServerConfig
	Gateway    GatewayConfig
	WebSocket  WebSocketConfig
	LogFile    string
	LogLevel   slog.Level
	CORSOrigin string
}

// ServerConfig holds settings for the HTTP server.
type ServerConfig struct {
	Port            string
	ReadHeaderWait  time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// GatewayConfig holds settings for the persistence and completion clients.
type GatewayConfig struct {
	AppURL            string
	PersistTimeout    time.Duration
	CompletionTimeout time.Duration
}

// WebSocketConfig holds settings for client connections.
type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageBytes int64
	SendQueueSize   int
	WriteWait       time.Duration
	PongWait        time.Duration
}

// Load returns configuration from environment variables with fallback to
// development defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "3003"),
			ReadHeaderWait:  getEnvAsDuration("SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Gateway: GatewayConfig{
			AppURL:            getEnv("APP_URL", "http://localhost:3000"),
			PersistTimeout:    getEnvAsDuration("GATEWAY_PERSIST_TIMEOUT", 10*time.Second),
			CompletionTimeout: getEnvAsDuration("GATEWAY_COMPLETION_TIMEOUT", 30*time.Second),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER", 1024),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER", 1024),
			MaxMessageBytes: int64(getEnvAsInt("WS_MAX_MESSAGE_BYTES", 64*1024)),
			SendQueueSize:   getEnvAsInt("WS_SEND_QUEUE_SIZE", 32),
			WriteWait:       getEnvAsDuration("WS_WRITE_WAIT", 10*time.Second),
			PongWait:        getEnvAsDuration("WS_PONG_WAIT", 60*time.Second),
		},
		LogFile:    getEnv("RELAY_LOG_FILE", ""),
		LogLevel:   parseLogLevel(getEnv("RELAY_LOG_LEVEL", "INFO")),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
	}
}

// Helper function to get an environment variable with a fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper function to get an environment variable as an integer
func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		slog.Warn("Invalid integer environment variable", "key", key, "value", value)
	}
	return fallback
}

// Helper function to get an environment variable as a duration
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("Invalid duration environment variable", "key", key, "value", value)
	}
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
