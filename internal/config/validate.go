package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAutoDJ(); err != nil {
		return err
	}
	if err := c.validateGraph(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateAutoDJ() error {
	if c.AutoDJ.SkipThresholdSeconds <= 0 {
		return errors.New("autodj.skip_threshold_seconds must be positive")
	}
	if c.AutoDJ.RescueSkipCount < 1 {
		return errors.New("autodj.rescue_skip_count must be at least 1")
	}
	if c.AutoDJ.ExpandListenCount < 1 {
		return errors.New("autodj.expand_listen_count must be at least 1")
	}
	if c.AutoDJ.QueueLowWater < 1 {
		return errors.New("autodj.queue_low_water must be at least 1")
	}
	if c.AutoDJ.ExpansionCooldownSeconds < 0 {
		return errors.New("autodj.expansion_cooldown_seconds must not be negative")
	}
	if c.AutoDJ.ActivePollSeconds < 1 || c.AutoDJ.IdlePollSeconds < 1 {
		return errors.New("autodj poll intervals must be at least 1 second")
	}
	if c.AutoDJ.IdlePollSeconds < c.AutoDJ.ActivePollSeconds {
		return errors.New("autodj.idle_poll_seconds must not be shorter than active_poll_seconds")
	}
	return nil
}

func (c *Config) validateGraph() error {
	if c.Graph.WeightIncrement <= 0 {
		return errors.New("graph.weight_increment must be positive")
	}
	if c.Graph.WeightCap > 0 && c.Graph.WeightCap < c.Graph.WeightIncrement {
		return fmt.Errorf("graph.weight_cap %.2f is below the increment %.2f", c.Graph.WeightCap, c.Graph.WeightIncrement)
	}
	if c.Graph.IngestBatchSize < 1 {
		return errors.New("graph.ingest_batch_size must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
