// Package config loads, normalizes, and validates PetSync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// PETSYNC_API_BASE_URL and PETSYNC_API_TOKEN. The Config type centralizes every
// knob the daemon and CLI need, so the queue location, backend endpoint and
// connectivity probe are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
