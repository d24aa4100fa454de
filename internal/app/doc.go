// Package app wires a session together: logger, configuration loading,
// binding resolution, graph execution and result rendering. The CLI is a
// thin shell over this package so tests can drive the whole application
// in-process.
package app
