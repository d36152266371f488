package config

import (
	"flag"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// DefaultLogLevel: уровень логирования, если LOG_LEVEL не задан или не распознан.
const DefaultLogLevel = "warn"

type Config struct {
	// Database access
	DatabasePath   string `env:"KEEPASS_DATABASE_PATH"`
	MasterPassword string `env:"KEEPASS_MASTER_PASSWORD"`
	PromptPassword bool   `env:"KEEPASS_PROMPT_PASSWORD"` // спросить пароль в терминале, если он не задан

	// Lookup journal (optional)
	AuditDSN string `env:"AUDIT_DATABASE_URI"`

	LogLevel string `env:"LOG_LEVEL"`
	Version  bool   `env:"-"` // show version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// значения из env служат значениями флагов по умолчанию
	flag.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "path to the KeePass .kdbx file")
	flag.StringVar(&cfg.MasterPassword, "password", cfg.MasterPassword, "master password (prefer KEEPASS_MASTER_PASSWORD)")
	flag.BoolVar(&cfg.PromptPassword, "prompt-password", cfg.PromptPassword, "read the master password from the terminal")
	flag.StringVar(&cfg.AuditDSN, "audit-db", cfg.AuditDSN, "lookup journal DSN: SQLite file path or postgres:// URL")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show version and exit")

	flag.Parse()

	cfg.LogLevel = NormalizeLogLevel(cfg.LogLevel)
	return cfg
}

// NormalizeLogLevel приводит уровень к виду, понятному zap; нераспознанный уровень заменяется на DefaultLogLevel.
func NormalizeLogLevel(level string) string {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || strings.TrimSpace(level) == "" {
		return DefaultLogLevel
	}
	return lvl.String()
}
