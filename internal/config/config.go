package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Configはアプリ全体の設定。環境変数から読み込む。
type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	GoEnv string `envconfig:"GO_ENV" default:"dev"` // dev/prod

	// DATABASE_URL があれば個別のPOSTGRES_*より優先
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"liveshop"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// 決済ゲートウェイ
	TossSecretKey  string        `envconfig:"TOSS_SECRET_KEY" required:"true"`
	TossBaseURL    string        `envconfig:"TOSS_BASE_URL" default:"https://api.tosspayments.com"`
	GatewayTimeout time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`
}

// Loadは環境変数からConfigを組み立てる。
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
