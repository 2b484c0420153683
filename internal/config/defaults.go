package config

import "strings"

const (
	defaultDataDir                  = "~/.local/share/moodify"
	defaultLogDir                   = "~/.local/share/moodify/logs"
	defaultSpotifyBaseURL           = "https://api.spotify.com/v1"
	defaultSpotifyMarket            = "US"
	defaultSpotifyRequestTimeout    = 10
	defaultOracleBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultOracleModel              = "google/gemini-3-flash-preview"
	defaultOracleTimeoutSeconds     = 30
	defaultSkipThresholdSeconds     = 30
	defaultRescueSkipCount          = 3
	defaultExpandListenCount        = 5
	defaultQueueLowWater            = 5
	defaultExpansionCooldownSeconds = 15
	defaultActivePollSeconds        = 1
	defaultIdlePollSeconds          = 5
	defaultWeightIncrement          = 0.5
	defaultWeightCap                = 10.0
	defaultIngestBatchSize          = 50
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Spotify: Spotify{
			BaseURL:        defaultSpotifyBaseURL,
			Market:         defaultSpotifyMarket,
			RequestTimeout: defaultSpotifyRequestTimeout,
		},
		Oracle: Oracle{
			BaseURL:        defaultOracleBaseURL,
			Model:          defaultOracleModel,
			TimeoutSeconds: defaultOracleTimeoutSeconds,
		},
		AutoDJ: AutoDJ{
			SkipThresholdSeconds:     defaultSkipThresholdSeconds,
			RescueSkipCount:          defaultRescueSkipCount,
			ExpandListenCount:        defaultExpandListenCount,
			QueueLowWater:            defaultQueueLowWater,
			ExpansionCooldownSeconds: defaultExpansionCooldownSeconds,
			ActivePollSeconds:        defaultActivePollSeconds,
			IdlePollSeconds:          defaultIdlePollSeconds,
		},
		Graph: Graph{
			WeightIncrement: defaultWeightIncrement,
			WeightCap:       defaultWeightCap,
			IngestBatchSize: defaultIngestBatchSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func (c *Config) normalize() {
	c.Spotify.BaseURL = strings.TrimRight(strings.TrimSpace(c.Spotify.BaseURL), "/")
	c.Oracle.BaseURL = strings.TrimSpace(c.Oracle.BaseURL)
	c.Oracle.APIKey = strings.TrimSpace(c.Oracle.APIKey)

	if expanded, err := expandPath(c.Paths.DataDir); err == nil {
		c.Paths.DataDir = expanded
	}
	if expanded, err := expandPath(c.Paths.LogDir); err == nil {
		c.Paths.LogDir = expanded
	}
}
