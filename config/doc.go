// Package config loads the YAML application configuration with sensible
// defaults for local development.
package config
