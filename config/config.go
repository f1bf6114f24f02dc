package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はサーバープロセスの設定。環境変数から読み込む。
type Config struct {
	Addr string `env:"ADDR" envDefault:"localhost"`
	Port string `env:"PORT" envDefault:"9090"`

	// DatabasePath が空の場合はインメモリストアで起動する
	DatabasePath string `env:"DATABASE_PATH"`
	CatalogDir   string `env:"CATALOG_DIR" envDefault:"assets"`

	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"outbreak"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	PingInterval    time.Duration `env:"PING_INTERVAL" envDefault:"5s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) ListenAddr() string {
	return c.Addr + ":" + c.Port
}
