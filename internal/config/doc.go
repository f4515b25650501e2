// Package config loads CLI defaults from WALKTHROUGH_* environment variables.
//
// Flags always win: the CLI applies a Config value only when the matching
// flag was not set on the command line.
package config
