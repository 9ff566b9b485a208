package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/specsim/data/db/documents.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/specsim/data/indices/bleve"
	}
	if cfg.Watch.Directory == "" {
		cfg.Watch.Directory = "/usr/local/var/specsim/inbox"
	}
	if cfg.Watch.DebounceDelayMs == 0 {
		cfg.Watch.DebounceDelayMs = 2000
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf"}
	}
	// ProcessExisting defaults to true when unset (nil).
	if cfg.Watch.ProcessExisting == nil {
		t := true
		cfg.Watch.ProcessExisting = &t
	}
}
