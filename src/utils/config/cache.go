package config

import (
	"time"

	"github.com/spf13/viper"
)

type Cache struct {
	// Maximum number of entries kept in one cache instance.
	// Oldest inserted entries are evicted first when full.
	MaxEntries int

	// How often expired entries are swept out
	SweepInterval time.Duration

	// Per-domain TTLs. Item and claim listings are the most
	// write-contended, so they expire the fastest.
	ProfileTtl              time.Duration
	StatsTtl                time.Duration
	ItemsTtl                time.Duration
	NearbyItemsTtl          time.Duration
	ClaimsTtl               time.Duration
	CollaborationsTtl       time.Duration
	CollaborationDetailsTtl time.Duration
	StoriesTtl              time.Duration
}

func setCacheDefaults() {
	viper.SetDefault("Cache.MaxEntries", "1000")
	viper.SetDefault("Cache.SweepInterval", "60s")
	viper.SetDefault("Cache.ProfileTtl", "600s")
	viper.SetDefault("Cache.StatsTtl", "300s")
	viper.SetDefault("Cache.ItemsTtl", "120s")
	viper.SetDefault("Cache.NearbyItemsTtl", "60s")
	viper.SetDefault("Cache.ClaimsTtl", "60s")
	viper.SetDefault("Cache.CollaborationsTtl", "180s")
	viper.SetDefault("Cache.CollaborationDetailsTtl", "120s")
	viper.SetDefault("Cache.StoriesTtl", "600s")
}
