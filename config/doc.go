// Package config loads configuration from a YAML file, an optional .env
// file and the environment into a tagged struct.
//
// Keys follow mapstructure tags; nested keys map to environment variables
// by upper-casing and replacing dots with underscores, optionally behind a
// prefix:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    RTDB rtdb.Config     `yaml:"rtdb" mapstructure:"rtdb"`
//	}
//
//	var cfg Config
//	err := config.LoadConfig("rtdb", &cfg) // RTDB_URL sets rtdb.url
package config
