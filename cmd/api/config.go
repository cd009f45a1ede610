package main

import (
	"time"

	"github.com/fastprodman/priestwallet/internal/config"
)

type apiConfig struct {
	HTTP            config.HTTPConfig
	Postgres        config.PostgresConfig
	Redis           config.RedisConfig
	Gateway         config.GatewayConfig
	Log             config.LogConfig
	ShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"20s"`
}
