package api

import (
	"go.uber.org/zap"

	"github.com/GlasgowSolarPhysics/crispy/internal/cache"
	"github.com/GlasgowSolarPhysics/crispy/internal/config"
)

type API struct {
	Cfg    *config.Config
	Cache  *cache.Cache
	Logger *zap.Logger
}

func NewAPI(cfg *config.Config, logger *zap.Logger) *API {
	return &API{
		Cfg:    cfg,
		Cache:  &cache.Cache{Location: cfg.CacheLocation},
		Logger: logger,
	}
}
