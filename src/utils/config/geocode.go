package config

import (
	"time"

	"github.com/spf13/viper"
)

type Geocode struct {
	// Upstream geocoding service
	Url string

	// Max upstream requests per second
	RatePerSecond int

	// Request timeout towards the upstream
	RequestTimeout time.Duration

	// How long a geocoding result stays cached
	CacheTtl time.Duration
}

func setGeocodeDefaults() {
	viper.SetDefault("Geocode.Url", "https://nominatim.openstreetmap.org")
	viper.SetDefault("Geocode.RatePerSecond", "1")
	viper.SetDefault("Geocode.RequestTimeout", "10s")
	viper.SetDefault("Geocode.CacheTtl", "24h")
}
