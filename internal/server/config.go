package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jacksonlee411/assetdesk/internal/backup"
	"github.com/jacksonlee411/assetdesk/modules/asset/infrastructure/persistence"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the process configuration read from the environment.
type Config struct {
	HTTPAddr       string        `validate:"required"`
	Store          string        `validate:"oneof=postgres memory"`
	DatabaseURL    string        `validate:"required_if=Store postgres"`
	RedisAddr      string        `validate:"omitempty,hostname_port"`
	PreviewTTL     time.Duration `validate:"gt=0"`
	TypeCacheSize  int           `validate:"gte=0"`
	BackupDir      string        `validate:"required"`
	BackupSchedule string        `validate:"required"`
	// MigrateOnStart applies the embedded goose migrations before serving.
	MigrateOnStart bool

	// Optional file locations; blank means the config/ default or built-in.
	AllowlistPath       string
	ErrorCatalogPath    string
	FieldPolicyPath     string
	AssetRulesPath      string
	ImportAdmissionPath string
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

func ConfigFromEnv() (Config, error) {
	ttlMinutes, err := intEnv("PREVIEW_TTL_MINUTES", int(persistence.DefaultPreviewTTL/time.Minute))
	if err != nil {
		return Config{}, err
	}
	cacheSize, err := intEnv("TYPE_CACHE_SIZE", persistence.DefaultTypeCacheSize)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		HTTPAddr:            getenvDefault("HTTP_ADDR", ":8080"),
		Store:               strings.ToLower(getenvDefault("STORE", StorePostgres)),
		RedisAddr:           strings.TrimSpace(getenvDefault("REDIS_ADDR", "")),
		PreviewTTL:          time.Duration(ttlMinutes) * time.Minute,
		TypeCacheSize:       cacheSize,
		BackupDir:           getenvDefault("BACKUP_DIR", "backups"),
		BackupSchedule:      getenvDefault("BACKUP_SCHEDULE", backup.DefaultSchedule),
		AllowlistPath:       getenvDefault("ALLOWLIST_PATH", ""),
		ErrorCatalogPath:    getenvDefault("ERROR_CATALOG_PATH", ""),
		FieldPolicyPath:     getenvDefault("FIELD_POLICY_PATH", ""),
		AssetRulesPath:      getenvDefault("ASSET_RULES_PATH", ""),
		ImportAdmissionPath: getenvDefault("IMPORT_ADMISSION_PATH", ""),
		MigrateOnStart:      boolEnv("MIGRATE_ON_START"),
	}
	if cfg.Store == StorePostgres {
		cfg.DatabaseURL = dbDSNFromEnv()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if _, err := backup.ParseSchedule(c.BackupSchedule); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	return nil
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(getenvDefault(key, ""))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("server config: %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string) bool {
	switch strings.ToLower(strings.TrimSpace(getenvDefault(key, ""))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
