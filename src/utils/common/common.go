package common

import (
	"context"
	"errors"

	"github.com/openpantry/pantry/src/utils/config"
)

type contextKey int

const (
	configKey contextKey = iota
)

var ErrConfigNotSet = errors.New("config not set in context")

// SetConfig attaches the global configuration to the context
func SetConfig(ctx context.Context, conf *config.Config) context.Context {
	return context.WithValue(ctx, configKey, conf)
}

func GetConfig(ctx context.Context) (conf *config.Config, err error) {
	conf, ok := ctx.Value(configKey).(*config.Config)
	if !ok {
		err = ErrConfigNotSet
	}
	return
}
