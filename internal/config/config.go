package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN    string        `env:"DATABASE_DSN,required=true"`
	RedisURL       string        `env:"REDIS_URL,required=true"`
	UserServiceURL string        `env:"USER_SERVICE_URL,required=true"`
	OSRMURL        string        `env:"OSRM_URL,default=https://router.project-osrm.org"`
	SweepInterval  time.Duration `env:"EXPIRY_SWEEP_INTERVAL,default=5m"`
	APIPort        int           `env:"API_PORT,default=8080"`
	LogLevel       string        `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
