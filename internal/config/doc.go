// Package config loads and validates trader configuration.
//
// Configuration comes from a YAML file with ${VAR} environment expansion.
// Omitted fields receive defaults via applyDefaults; Validate rejects
// configs that could never trade safely (bad weights, zero cadence,
// incoherent live gate).
package config
