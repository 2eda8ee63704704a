// Package executor runs candidates through remote lookup, planning and upload
// with a bounded number in flight, recording one outcome per candidate.
package executor
