// Package config handles configuration loading for the races service.
//
// # Configuration File
//
// Resolution order (see ResolvePath):
//
//  1. The --config flag
//  2. Path from the RACES_CONFIG environment variable
//  3. ./config.yaml (current directory)
//
// Files ending in .toml are decoded as TOML; anything else is YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${RACES_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8000"
//
//	storage:
//	  races_dir: "./races"         # active races
//	  archived_dir: "./archived"   # retired races
//	  extension: "yaml"            # default
//
//	polars:
//	  url: "https://polars.example/api/polar"  # empty disables boat lookup
//	  timeout: "5s"
//	  cache_ttl: "10m"                          # "0s" disables caching
//
//	auth:
//	  jwt_secret: "${RACES_JWT_SECRET}"  # optional, at least 32 bytes
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
//	tailscale:
//	  enabled: false
//	  hostname: "races"
//	  auth_key: "${TS_AUTHKEY}"
//	  https: false
//	  funnel: false
//
// # Validation
//
// Load calls Validate after parsing and applying defaults. server.http_addr is required unless
// tailscale is enabled; both storage directories are required and must differ.
package config
