// Package config loads the server settings from defaults, an optional
// config.yaml and SCRY_-prefixed environment variables, then validates them.
package config
