// Package config loads, normalizes, and validates tcgprice configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TCGPRICE_NTFY_TOPIC. The Config type centralizes every knob the batch jobs
// and CLI need: store location, catalog sources and their selectors, job
// pacing, change detection windows, and cron schedules.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
