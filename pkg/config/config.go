package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBadger   = "badger"
	StoreRedis    = "redis"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Badger   BadgerConfig
	Bandit   BanditConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
	AllowOrigins   []string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

type BadgerConfig struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

type BanditConfig struct {
	// memory, postgres, badger or redis
	Store string

	RewardView        float64
	RewardClick       float64
	RewardAddToCart   float64
	MaxObservedReward float64

	DefaultK        int
	RankChunkSize   int
	RankConcurrency int

	BreakerFailureThreshold uint32
	BreakerTimeout          time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	requestTimeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "10s"))
	if err != nil {
		return nil, errors.New("invalid request timeout")
	}

	breakerTimeout, err := time.ParseDuration(getEnv("BANDIT_BREAKER_TIMEOUT", "10s"))
	if err != nil {
		return nil, errors.New("invalid bandit breaker timeout")
	}

	var numErr error
	getFloat := func(key, def string) float64 {
		v, err := strconv.ParseFloat(getEnv(key, def), 64)
		if err != nil && numErr == nil {
			numErr = fmt.Errorf("invalid %s", strings.ToLower(key))
		}
		return v
	}
	getInt := func(key, def string) int {
		v, err := strconv.Atoi(getEnv(key, def))
		if err != nil && numErr == nil {
			numErr = fmt.Errorf("invalid %s", strings.ToLower(key))
		}
		return v
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Skincare Recommendation API"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RequestTimeout: requestTimeout,
			AllowOrigins:   splitList(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:8080")),
		},
		Database: DatabaseConfig{
			Enabled:  getEnv("DB_ENABLED", "false") == "true",
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "skincare_reco"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Badger: BadgerConfig{
			Path:       getEnv("BADGER_PATH", "./data/bandit"),
			InMemory:   getEnv("BADGER_IN_MEMORY", "false") == "true",
			SyncWrites: getEnv("BADGER_SYNC_WRITES", "true") == "true",
		},
		Bandit: BanditConfig{
			Store:                   strings.ToLower(getEnv("BANDIT_STORE", StoreMemory)),
			RewardView:              getFloat("BANDIT_REWARD_VIEW", "0"),
			RewardClick:             getFloat("BANDIT_REWARD_CLICK", "1"),
			RewardAddToCart:         getFloat("BANDIT_REWARD_ADD_TO_CART", "2"),
			MaxObservedReward:       getFloat("BANDIT_MAX_OBSERVED_REWARD", "2"),
			DefaultK:                getInt("BANDIT_DEFAULT_N", "5"),
			RankChunkSize:           getInt("BANDIT_RANK_CHUNK_SIZE", "256"),
			RankConcurrency:         getInt("BANDIT_RANK_CONCURRENCY", "4"),
			BreakerFailureThreshold: uint32(getInt("BANDIT_BREAKER_FAILURES", "5")),
			BreakerTimeout:          breakerTimeout,
		},
	}

	if numErr != nil {
		return nil, numErr
	}

	switch cfg.Bandit.Store {
	case StoreMemory, StoreBadger, StoreRedis:
	case StorePostgres:
		if !cfg.Database.Enabled {
			return nil, errors.New("postgres bandit store requires DB_ENABLED=true")
		}
	default:
		return nil, fmt.Errorf("unknown bandit store %q", cfg.Bandit.Store)
	}

	if cfg.Database.Enabled && cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if !(cfg.Bandit.MaxObservedReward > 0) {
		return nil, errors.New("bandit max observed reward must be greater than 0")
	}

	if cfg.Bandit.RewardView < 0 || cfg.Bandit.RewardClick < 0 || cfg.Bandit.RewardAddToCart < 0 {
		return nil, errors.New("bandit rewards cannot be negative")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
