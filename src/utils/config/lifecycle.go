package config

import (
	"github.com/spf13/viper"
)

type Lifecycle struct {
	// Worker pool for secondary item-status reconciliation
	NumWorkers int

	// Maximum reconciliation jobs waiting in the pool's queue
	WorkerQueueSize int
}

func setLifecycleDefaults() {
	viper.SetDefault("Lifecycle.NumWorkers", "10")
	viper.SetDefault("Lifecycle.WorkerQueueSize", "100")
}
