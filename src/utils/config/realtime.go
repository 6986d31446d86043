package config

import (
	"time"

	"github.com/spf13/viper"
)

type Realtime struct {
	// Size of the buffered channel of raw feed notifications
	FeedCapacity int

	// Max time between feed reconnect attempts
	FeedReconnectMaxInterval time.Duration

	// Max total time spent reconnecting the feed. 0 means no limit.
	FeedReconnectMaxElapsedTime time.Duration

	// Size of the buffered channel of events delivered to one scope
	ScopeQueueSize int

	// Messages from the same sender closer together than this
	// are collapsed into one display group
	CollapseWindow time.Duration
}

func setRealtimeDefaults() {
	viper.SetDefault("Realtime.FeedCapacity", "100")
	viper.SetDefault("Realtime.FeedReconnectMaxInterval", "15s")
	viper.SetDefault("Realtime.FeedReconnectMaxElapsedTime", "0")
	viper.SetDefault("Realtime.ScopeQueueSize", "50")
	viper.SetDefault("Realtime.CollapseWindow", "3m")
}
