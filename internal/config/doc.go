// Package config loads, normalizes, and validates webcast configuration.
//
// Configuration comes from a TOML file (default ~/.config/webcast/config.toml,
// falling back to ./webcast.toml), with a small number of environment
// overrides for values that are awkward to keep in a file (stream URLs often
// carry credentials). Loading always follows the same order: defaults, file
// decode, normalize, validate.
package config
