// Package config loads grid files from disk and builds the runnable pieces
// of a session: the rule graph, the engine options and the binding
// declarations. Files are discovered from a path, parsed as HCL, merged and
// translated; structural problems surface here, before anything executes.
package config
