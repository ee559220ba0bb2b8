// Package config handles configuration loading for coven-gradebook.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from GRADEBOOK_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/coven/gradebook.yaml
//  3. ~/.config/coven/gradebook.yaml
//
// A .env file in the same directory is loaded before the YAML is read.
// Variables already present in the environment win over the file.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	matrix:
//	  password: "${GRADEBOOK_MATRIX_PASSWORD}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
//	database:
//	  driver: "sqlite"              # sqlite or postgres
//	  path: "~/.local/share/coven/gradebook.db"
//	  url: ""                       # postgres://... when driver is postgres
//
//	matrix:
//	  homeserver: "https://matrix.example.org"
//	  username: "gradebook"
//	  password: "${GRADEBOOK_MATRIX_PASSWORD}"
//	  recovery_key: ""              # enables cross-signing when set
//	  allowed_rooms: []             # empty means every joined room
//	  ignored_users: []             # other bots
//	  typing_indicator: true
//	  dedupe_ttl: "10m"
//
//	analysis:
//	  enabled: false
//	  api_key: "${OPENAI_API_KEY}"
//	  base_url: ""                  # OpenAI compatible endpoint
//	  model: "gpt-4o-mini"
//	  timeout: "30s"
//
//	charts:
//	  workers: 4                    # defaults to the CPU count
//	  temp_dir: ""                  # defaults to os.TempDir()
//
//	sessions:
//	  shards: 32
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load("/etc/coven/gradebook.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
