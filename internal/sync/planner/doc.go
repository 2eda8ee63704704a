// Package planner decides, per candidate, whether to skip the upload or to put
// the file whole or in parts.
//
// Sizes are compared before any hashing: a size mismatch already proves the
// content differs, so the local file is only fingerprinted when the remote
// object has the same size.
package planner
