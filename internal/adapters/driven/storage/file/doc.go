// Package file provides file-based persistence for the credential and
// the per-account session state, stored as JSON under the config
// directory with owner-only permissions.
package file
