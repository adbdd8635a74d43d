// Package config loads and validates the service configuration from a YAML
// file. Secrets (recognizer and streaming API keys) are taken from the
// environment so they stay out of config files.
package config
