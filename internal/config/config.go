package config

import (
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	commoncfg "github.com/codemonkey0612/aikan-cloud-sub001/internal/common/config"
)

// Config wisefido-care（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr            string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}
	Database commoncfg.DatabaseConfig
	Redis    commoncfg.RedisConfig
	Log      struct {
		Level  string
		Format string
	}
	Auth struct {
		JWTSecret string
		TokenTTL  time.Duration
	}
	App struct {
		// 月份边界、班次日期均按此时区计算
		Timezone string
	}
	Cache struct {
		Enabled bool
		TTL     time.Duration
	}
	Events struct {
		Enabled bool
		Stream  string
		MaxLen  int64
	}
	PinCleanup struct {
		Enabled  bool
		Interval time.Duration
	}
	PinNotify struct {
		URL     string
		Timeout time.Duration
	}
}

// Load 从环境变量加载配置
func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.ReadTimeout = seconds("HTTP_READ_TIMEOUT_SECONDS", 15)
	cfg.HTTP.WriteTimeout = seconds("HTTP_WRITE_TIMEOUT_SECONDS", 30)
	cfg.HTTP.ShutdownTimeout = seconds("HTTP_SHUTDOWN_TIMEOUT_SECONDS", 5)

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "aikan"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 20
	cfg.Database.MaxIdle = 5
	cfg.Database.ConnMaxLifetime = 30 * time.Minute
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "change-me")
	cfg.Auth.TokenTTL = time.Duration(parseInt(getEnv("JWT_TTL_HOURS", "24"), 24)) * time.Hour

	cfg.App.Timezone = getEnv("APP_TIMEZONE", "Asia/Tokyo")

	cfg.Cache.Enabled = getEnv("CACHE_ENABLED", "true") == "true"
	cfg.Cache.TTL = seconds("CACHE_TTL_SECONDS", 300)

	cfg.Events.Enabled = getEnv("ATTENDANCE_EVENTS_ENABLED", "true") == "true"
	cfg.Events.Stream = getEnv("ATTENDANCE_EVENT_STREAM", "attendance:events")
	cfg.Events.MaxLen = int64(parseInt(getEnv("ATTENDANCE_EVENT_MAXLEN", "10000"), 10000))

	cfg.PinCleanup.Enabled = getEnv("PIN_CLEANUP_ENABLED", "true") == "true"
	cfg.PinCleanup.Interval = seconds("PIN_CLEANUP_INTERVAL_SECONDS", 3600)

	cfg.PinNotify.URL = getEnv("PIN_NOTIFY_URL", "")
	cfg.PinNotify.Timeout = seconds("PIN_NOTIFY_TIMEOUT_SECONDS", 5)

	return cfg
}

// Location 解析 App.Timezone，失败时回退到 UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func seconds(key string, def int) time.Duration {
	v := parseInt(getEnv(key, strconv.Itoa(def)), def)
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}
