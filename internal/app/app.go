package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GlasgowSolarPhysics/crispy/internal/api"
	"github.com/GlasgowSolarPhysics/crispy/internal/cache"
	"github.com/GlasgowSolarPhysics/crispy/internal/config"
)

func Run() {
	cfg := ParseCLI()
	cfg.LocationDetails = ParseConfigFile(cfg.ConfigFile)

	if cfg.UseCache {
		SetupCache(
			cfg.CacheLocation,
			cfg.CachePollingInterval,
			cfg.CacheMaxBytes,
		)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	// Setup API
	qlapi := api.NewAPI(&cfg, logger)

	// Setup HTTP server
	e := SetupServer(qlapi)

	// Run server
	address := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	go func() {
		if err := e.Start(address); err != nil {
			e.Logger.Info("Shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}

func ParseCLI() config.Config {
	cfg := config.Config{}
	pflag.StringVarP(&cfg.Host, "host", "i", "0.0.0.0", "Host where the server will run")
	pflag.IntVarP(&cfg.Port, "port", "p", 5055, "Port where the server will run")
	pflag.BoolVarP(&cfg.Debug, "debug", "d", false, "Whether or not to enable debug logging")
	pflag.StringVarP(&cfg.ConfigFile, "config", "c", "./crispyConfig.json", "Location of the config file")
	pflag.BoolVarP(&cfg.UseCache, "use-cache", "u", true, "Cache rendered plots and fetched objects. Can be disabled for certain cases like testing.")
	pflag.StringVarP(&cfg.CacheLocation, "cache-location", "C", "./crispycache/", "Where the cache will be stored")
	pflag.IntVarP(&cfg.CachePollingInterval, "cache-polling-interval", "P", 60, "How often to check the cache (in seconds)")
	pflag.Int64VarP(&cfg.CacheMaxBytes, "cache-max-bytes", "m", 100000000, "How large to allow the cache to be")
	pflag.Float64VarP(&cfg.PlotWidthInches, "plot-width", "W", 6, "Rendered plot width in inches")
	pflag.Float64VarP(&cfg.PlotHeightInches, "plot-height", "H", 4, "Rendered plot height in inches")
	pflag.Parse()

	return cfg
}

func SetupServer(a *api.API) *echo.Echo {
	e := echo.New()

	e.Debug = a.Cfg.Debug

	// Setup Middleware
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Location routes
	e.GET("/ql/locations", a.GetLocations)
	e.GET("/ql/fs/:location/*", a.GetObsListing)

	// Quicklook routes
	e.GET("/ql/info/:location/*", a.GetObsInfo)
	e.GET("/ql/spectrum/:y/:x/:location/*", a.GetSpectrum)
	e.GET("/ql/map/:wave/:location/*", a.GetMap)

	// Add Prometheus as middleware for metrics gathering
	p := prometheus.NewPrometheus("crispy_quicklook", nil)
	p.Use(e)

	return e
}

// SetupCache will setup a cache directory and kick off cache
// checking goroutines
func SetupCache(cacheLocation string, cachePollingInterval int, cacheMaxBytes int64) {
	// Create directories for cache if they don't exist
	err := os.MkdirAll(cacheLocation, 0755)
	if err != nil {
		log.Println("Error Creating Cache File Directory: ", cacheLocation, err)
		return
	}
	plotsDir := filepath.Join(cacheLocation, "plots")
	err = os.MkdirAll(plotsDir, 0755)
	if err != nil {
		log.Println("Error Creating Cache File/plots Directory ", cacheLocation, err)
		return
	}

	objectCacheDir := filepath.Join(cacheLocation, "objectcache")
	err = os.MkdirAll(objectCacheDir, 0755)
	if err != nil {
		log.Println("Error Creating Cache File/objectcache Directory ", cacheLocation, err)
		return
	}

	// Launch a seperate routine to monitor the cache size
	go cache.CheckCache(plotsDir, cachePollingInterval, cacheMaxBytes)
	go cache.CheckCache(objectCacheDir, cachePollingInterval, cacheMaxBytes)
}

func ParseConfigFile(cfgfile string) []config.Location {
	body, err := os.ReadFile(cfgfile)
	if err != nil {
		panic(err)
	}

	var cfg *config.Config
	err = json.Unmarshal(body, &cfg)
	if err != nil {
		panic(err)
	}

	return cfg.LocationDetails
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
