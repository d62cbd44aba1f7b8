// Package config collects the handful of environment-driven tunables
// this editor honors, the same way the rest of the pack gates behavior
// behind env vars (c67's VerboseMode, FLAP_DEBUG) rather than a config
// file.
package config

import env "github.com/xyproto/env/v2"

const defaultPageSize = 0x1000

// Config holds the tunables read from the environment at startup.
type Config struct {
	// Verbose enables diagnostic output on stderr.
	Verbose bool
	// PageSize is the memory-mapping granularity used to constrain
	// NextPage-aligned section moves.
	PageSize int64
	// NextPageAlign is read from ELFRPATH_NEXT_PAGE_ALIGN. No part of
	// the editor consults it: the first relocated section in a layout
	// change starts on a page boundary whether it is set or not.
	NextPageAlign bool
}

// FromEnvironment builds a Config from ELFRPATH_* environment
// variables, falling back to documented defaults.
func FromEnvironment() Config {
	return Config{
		Verbose:       env.Bool("ELFRPATH_VERBOSE"),
		PageSize:      env.Int64("ELFRPATH_PAGE_SIZE", defaultPageSize),
		NextPageAlign: env.Bool("ELFRPATH_NEXT_PAGE_ALIGN"),
	}
}

// Default returns the Config that applies when no environment variable
// is set.
func Default() Config {
	return Config{PageSize: defaultPageSize}
}
