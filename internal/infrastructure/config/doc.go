// Package config handles loading and validating GrowWiz configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with GROWWIZ_* environment variables
//   - Validation of required fields, thresholds and cron schedules
//   - Default value handling
//
// Secrets (JWT secret, operator password hash, broker and InfluxDB
// credentials) should come from the environment. The CLI loads an optional
// .env file before calling Load.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Automation.Schedule)
package config
