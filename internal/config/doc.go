// Package config loads the server settings from defaults, an optional config
// file, CERTQUEST_ environment variables and command-line flags, in rising
// order of precedence, and validates the result.
package config
