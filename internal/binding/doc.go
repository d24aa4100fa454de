// Package binding loads the initial variables a run starts with from an
// external key-value and time-series store. Variable declarations name a
// storage shape and a key prefix; the provider expands placeholders and date
// tokens, builds the storage keys and loads all variables concurrently.
package binding
