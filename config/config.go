package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/pos-terminal/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds terminal configuration. Every field has a default so the
// terminal starts with no configuration present.
type Config struct {
	Port                string
	RemoteBaseURL       string
	RemoteTimeout       time.Duration
	SyncInterval        time.Duration
	SyncMaxBackoff      time.Duration
	KitchenPollInterval time.Duration
	DBDriver            string
	DBDSN               string
	JWTSecret           string
	SessionTTL          time.Duration
	CORSOrigin          string
	LogLevel            string
	GinMode             string
}

// Load reads .env (if present) and then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Debugf("no .env file loaded: %v", err)
	}

	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		RemoteBaseURL:       strings.TrimRight(getEnv("REMOTE_BASE_URL", "http://localhost:8000"), "/"),
		RemoteTimeout:       getDuration("REMOTE_TIMEOUT", 15*time.Second),
		SyncInterval:        getDuration("SYNC_INTERVAL", 30*time.Second),
		SyncMaxBackoff:      getDuration("SYNC_MAX_BACKOFF", 5*time.Minute),
		KitchenPollInterval: getDuration("KITCHEN_POLL_INTERVAL", 10*time.Second),
		DBDriver:            strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:               getEnv("DB_DSN", "pos-terminal.db"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		SessionTTL:          getDuration("SESSION_TTL", 12*time.Hour),
		CORSOrigin:          getEnv("CORS_ORIGIN", "http://localhost:5173"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		GinMode:             getEnv("GIN_MODE", "debug"),
	}

	if cfg.JWTSecret == "" {
		utils.InfoLogger.Warn("JWT_SECRET not set, using development secret")
		cfg.JWTSecret = "pos-terminal-dev-secret"
	}
	return cfg
}

// InitDB opens the local ledger database.
func InitDB(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(cfg.DBDSN)
	case "mysql":
		dialector = mysql.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	gormLogger := logger.New(utils.InfoLogger, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	if utils.InfoLogger.IsLevelEnabled(logrus.DebugLevel) {
		gormLogger = gormLogger.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}

	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows one writer; a single connection keeps the ledger's
		// transactions from tripping over "database is locked".
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		utils.ErrorLogger.Warnf("invalid %s value %q, defaulting to %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}
