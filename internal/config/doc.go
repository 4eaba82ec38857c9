// Package config handles configuration loading for coven-bot.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. The format follows the file extension: .toml is TOML, anything
// else is YAML.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from COVEN_BOT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/coven-bot/config.yaml
//  3. ~/.config/coven-bot/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	messenger:
//	  page_token: "${PAGE_ACCESS_TOKEN}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  shutdown_timeout: "10s"
//
//	tailscale:
//	  enabled: false
//	  hostname: "coven-bot"
//	  auth_key: "${TS_AUTHKEY}"
//	  funnel: true
//
//	messenger:
//	  page_token: "${PAGE_ACCESS_TOKEN}"   # required
//	  app_secret: "${APP_SECRET}"          # enables signature checks
//	  verify_token: "${VERIFY_TOKEN}"      # required
//	  api_version: "v19.0"
//	  rate_limit: 20                       # requests per second
//	  burst: 5
//	  broadcast_echoes: false
//
//	webhook:
//	  path: "/webhook"
//	  handle_timeout: "2m"
//	  dedupe:
//	    enabled: true
//	    ttl: "10m"
//	    max_size: 10000
//
//	database:
//	  path: "~/.local/share/coven-bot/ledger.db"  # empty disables the ledger
//	  retention: "720h"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
