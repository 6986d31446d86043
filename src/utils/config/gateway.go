package config

import (
	"time"

	"github.com/spf13/viper"
)

type Gateway struct {
	// Max time the server may spend handling one request
	ServerRequestTimeout time.Duration

	// Default and maximum page sizes for listings
	DefaultPageSize int
	MaxPageSize     int
}

func setGatewayDefaults() {
	viper.SetDefault("Gateway.ServerRequestTimeout", "30s")
	viper.SetDefault("Gateway.DefaultPageSize", "20")
	viper.SetDefault("Gateway.MaxPageSize", "100")
}
