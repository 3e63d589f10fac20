package config

import (
	"time"

	config "github.com/avvvet/game-services/configs"
)

type Config struct {
	Port           string        `env:"SOCKET_SERVICE_PORT" envDefault:"8004"`
	NatsURL        string        `env:"NATS_URL"`
	NatsToken      string        `env:"NATS_TOKEN"`
	JWTSecret      string        `env:"JWT_SECRET_KEY,required,notEmpty"`
	RateLimit      int           `env:"RATE_LIMIT" envDefault:"100"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
