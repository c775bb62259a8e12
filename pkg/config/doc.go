// Package config is documented in config.go.
package config
