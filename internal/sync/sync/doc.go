// Package sync runs one synchronisation pass: validate the configuration,
// match the local directory against the rules, then drive every candidate
// through the executor.
//
// This package is the entry point the public Sync API delegates to.
package sync
