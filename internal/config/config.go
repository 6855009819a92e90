package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cartkeeper/internal/domain/model"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string // サーバーポート（8080）
	GoEnv    string // dev/prod
	LogLevel string // debug/info/warn/error

	DatabaseURL string // あればPOSTGRES_*より優先

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string // disable/require

	InactivityThreshold time.Duration      // 放棄とみなすまでの時間（3h）
	DeletionThreshold   time.Duration      // 放棄カートを削除するまでの時間（7日）
	DeletionMode        model.DeletionMode // soft/hard
	SweepInterval       time.Duration      // sweeperの実行間隔（15m）
	SweepWorkers        int                // 同時に処理するカート数（4）
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := atoiOr("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}

	inactivity, err := durationOr("INACTIVITY_THRESHOLD", time.Hour, 3*time.Hour)
	if err != nil {
		return Config{}, err
	}
	deletion, err := durationOr("CART_DELETION_THRESHOLD_DAYS", 24*time.Hour, 7*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	interval, err := durationOr("CART_SWEEP_INTERVAL", time.Minute, 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	workers, err := atoiOr("CART_SWEEP_WORKERS", 4)
	if err != nil {
		return Config{}, err
	}
	mode, err := model.ParseDeletionMode(os.Getenv("CART_DELETION_MODE"))
	if err != nil {
		return Config{}, fmt.Errorf("CART_DELETION_MODE: %w", err)
	}

	cfg := Config{
		Port:     getenv("PORT", "8080"),
		GoEnv:    getenv("GO_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "cartkeeper"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		InactivityThreshold: inactivity,
		DeletionThreshold:   deletion,
		DeletionMode:        mode,
		SweepInterval:       interval,
		SweepWorkers:        workers,
	}

	//値チェック
	if cfg.InactivityThreshold <= 0 {
		return Config{}, fmt.Errorf("INACTIVITY_THRESHOLD must be positive")
	}
	if cfg.DeletionThreshold <= 0 {
		return Config{}, fmt.Errorf("CART_DELETION_THRESHOLD_DAYS must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("CART_SWEEP_INTERVAL must be positive")
	}
	if cfg.SweepWorkers <= 0 {
		return Config{}, fmt.Errorf("CART_SWEEP_WORKERS must be positive")
	}

	return cfg, nil
}

// DSN はDATABASE_URLか、POSTGRES_*から組み立てた接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func getenv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func atoiOr(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

// 数字だけならunit単位（時間・日数）、それ以外は"90m"のようなGoのduration
func durationOr(key string, unit time.Duration, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(n * float64(unit)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number or duration: %w", key, err)
	}
	return d, nil
}
