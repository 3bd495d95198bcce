package config

type Config struct {
	Host                 string     `json:"host,omitempty"`
	Port                 int        `json:"port,omitempty"`
	Debug                bool       `json:"debug,omitempty"`
	ConfigFile           string     `json:"config_file,omitempty"`
	UseCache             bool       `json:"use_cache,omitempty"`
	CacheLocation        string     `json:"cache_location,omitempty"`
	CachePollingInterval int        `json:"cache_polling_interval,omitempty"`
	CacheMaxBytes        int64      `json:"cache_max_bytes,omitempty"`
	PlotWidthInches      float64    `json:"plot_width_inches,omitempty"`
	PlotHeightInches     float64    `json:"plot_height_inches,omitempty"`
	LocationDetails      []Location `json:"location_details,omitempty"`
}

type Location struct {
	LocationName   string `json:"location_name"`
	LocationType   string `json:"location_type"`
	Path           string `json:"path,omitempty"`
	MinioBucket    string `json:"minio_bucket,omitempty"`
	Location       string `json:"location,omitempty"`
	MinioAccessKey string `json:"minio_access_key,omitempty"`
	MinioSecretKey string `json:"minio_secret_key,omitempty"`
}

// FindLocation returns the named entry from LocationDetails.
func (c *Config) FindLocation(name string) (Location, bool) {
	for i := range c.LocationDetails {
		if c.LocationDetails[i].LocationName == name {
			return c.LocationDetails[i], true
		}
	}
	return Location{}, false
}
