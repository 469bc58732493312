// Package file loads and persists the client configuration as a TOML
// file in the config directory. Missing values fall back to defaults so
// a fresh install works without a config file.
package file
