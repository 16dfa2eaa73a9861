// Package config loads copa's configuration via Viper.
//
// Configuration is read from config.yaml in the current directory or in
// the XDG config directory for copa (~/.config/copa on Linux). Every key
// can also be set through the environment with the COPA_ prefix, e.g.
// COPA_BRANCH=develop.
//
// Keys:
//
//	source            default bundle repository URL (used when --url is omitted)
//	branch            default branch for archive URL derivation (default: main)
//	backup.retention  snapshots kept by `copa backup prune` (default: 5)
package config
