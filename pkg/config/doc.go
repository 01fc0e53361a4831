// Package config defines the configuration applied by the initialization
// coordinator and the layering used to build it.
//
// # Sources
//
// Values are layered with the following precedence, highest first:
//
//   - command-line flags (tracked through a "changed" map of flag names)
//   - FOUNDATION_* environment variables
//   - a TOML or YAML file (FOUNDATION_CONFIG_FILE, or an explicit path)
//   - DefaultConfig
//
// # Errors
//
// Malformed values surface as *ParseError. Callers that auto-derive a
// configuration may fall back to DefaultConfig on a ParseError; any other
// error, such as an unreadable config file, must be propagated.
//
// # Identity
//
// A Config whose ServiceName is empty was derived automatically. The
// coordinator allows such a config to be upgraded in place with
// UpdateConfigIfDefault.
package config
