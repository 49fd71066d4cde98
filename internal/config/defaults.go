package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "/usr/local/var/osusume/data/catalog.csv"
	}
	if cfg.Catalog.Delimiter == "" {
		cfg.Catalog.Delimiter = ","
	}
	if cfg.Index.MaxFeatures == 0 {
		cfg.Index.MaxFeatures = 5000
	}
	if cfg.Recommend.DefaultLimit == 0 {
		cfg.Recommend.DefaultLimit = 5
	}
	if cfg.Recommend.MaxLimit == 0 {
		cfg.Recommend.MaxLimit = 20
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o-mini"
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.7
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 1000
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 30
	}
	if cfg.AI.MaxRetries == 0 {
		cfg.AI.MaxRetries = 3
	}
	if cfg.AI.CacheTTLSeconds == 0 {
		cfg.AI.CacheTTLSeconds = 3600
	}
	if cfg.AI.Breaker.FailureThreshold == 0 {
		cfg.AI.Breaker.FailureThreshold = 5
	}
	if cfg.AI.Breaker.ResetTimeoutSeconds == 0 {
		cfg.AI.Breaker.ResetTimeoutSeconds = 30
	}
}
