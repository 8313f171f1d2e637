// Package config provides configuration management for the triage router.
//
// Configuration is loaded from environment variables and validated on startup.
// All configuration options have sensible defaults for development; provider
// API keys default to empty, which removes that provider from the invocation
// chain rather than failing startup.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg)
package config
