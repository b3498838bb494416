package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv            string
	Addr              string
	DbDriver          string
	DbDsn             string
	JwtSecret         string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	LogLevel          string
	LogFile           string
	AllowedOriginsRaw string
	RateLimitMax      int
	RateLimitWindow   time.Duration
	TimerLockTTL      time.Duration
	TimerLockWait     time.Duration
	SweepInterval     time.Duration
}

var supportedDrivers = map[string]bool{"mysql": true, "postgres": true, "sqlite": true}

func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("worktime")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "local")
	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RATE_LIMIT_MAX", 30)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("TIMER_LOCK_TTL_SECONDS", 10)
	v.SetDefault("TIMER_LOCK_WAIT_MS", 2000)
	v.SetDefault("SWEEP_INTERVAL_MINUTES", 15)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppEnv:            v.GetString("APP_ENV"),
		Addr:              v.GetString("APP_ADDR"),
		DbDriver:          strings.ToLower(v.GetString("DB_DRIVER")),
		DbDsn:             v.GetString("DB_DSN"),
		JwtSecret:         v.GetString("JWT_SECRET"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFile:           v.GetString("LOG_FILE"),
		AllowedOriginsRaw: v.GetString("ALLOWED_ORIGINS"),
		RateLimitMax:      v.GetInt("RATE_LIMIT_MAX"),
		RateLimitWindow:   time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		TimerLockTTL:      time.Duration(v.GetInt("TIMER_LOCK_TTL_SECONDS")) * time.Second,
		TimerLockWait:     time.Duration(v.GetInt("TIMER_LOCK_WAIT_MS")) * time.Millisecond,
		SweepInterval:     time.Duration(v.GetInt("SWEEP_INTERVAL_MINUTES")) * time.Minute,
	}

	missing := []string{}
	if cfg.DbDsn == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.JwtSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return cfg, errors.New("missing env: " + strings.Join(missing, ", "))
	}
	if !supportedDrivers[cfg.DbDriver] {
		return cfg, errors.New("unsupported DB_DRIVER: " + cfg.DbDriver)
	}

	return cfg, nil
}

// AllowedOrigins splits ALLOWED_ORIGINS on commas. Empty means any origin.
func (c Config) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(c.AllowedOriginsRaw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}
