// Package value defines the engine's view of runtime data.
//
// Every variable flowing between nodes is a cty.Value. This package layers a
// coarse classification on top (scalar, object, table) and implements the
// schema-string language consumers use to gate what they read: a bare type
// token such as "double" for scalars, or a comma-separated "column:type" list
// for tabular values. Validation happens at consumption time, against the
// consumer's declaration, never the producer's.
package value
