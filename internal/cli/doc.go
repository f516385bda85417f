// Package cli implements voicectl, the operator command line for the voice
// authentication service. Commands run against the configured store in
// process, or against a running server when --server is given.
package cli
