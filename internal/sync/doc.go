// Package sync implements prefix synchronization of a local directory.
// This includes matching files against rules, fetching remote state,
// deciding whether each file must be uploaded, and executing the uploads
// with concurrency control.
//
// The sync package provides the complete implementation for the public Sync API.
package sync
