// Package config loads, validates, and defaults the TOML configuration
// shared by every Moodify subsystem.
package config
